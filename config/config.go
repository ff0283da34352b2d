package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	APIKey         string
	APISecret      string
	Passphrase     string
	RESTHost       string
	WSPublicURL    string
	Simulated      bool
	RequestsPerSec float64
	PingPeriod     time.Duration
	PriceMaxAge    time.Duration

	InstID      string
	Timeframe   string
	CandleLimit int
	Leverage    int
	OrderSize   float64
	TickSize    float64
	LotSize     float64

	// Loops
	PollInterval   time.Duration
	ExitInterval   time.Duration
	ErrorBackoff   time.Duration
	RequestTimeout time.Duration

	// Indicators
	BollingerPeriod int
	BollingerMult   float64
	RSIPeriod       int
	EMAPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	ADXPeriod       int
	ATRPeriod       int

	// Overtrade throttle
	MaxTradesPerHour int
	CoolDown         time.Duration
	MaxOpenPositions int
	EnforceMaxOpen   bool

	// Entry engine
	EntryPolicy    string // meanreversion | breakout
	UseRSIFilter   bool
	RSIBuyMax      float64
	RSISellMin     float64
	UseHistFilter  bool
	HistBuyMin     float64
	HistSellMax    float64
	UseEMAFilter   bool
	EMABuyFloor    float64 // price >= ema*floor for buys
	EMASellCeil    float64 // price <= ema*ceil for sells
	UseADXFilter   bool
	ADXMin         float64
	BreakoutADXMin float64

	// Protection levels attached to entries, in ATR multiples
	AtrSLMult           float64
	AtrTPMult           float64
	AtrTrailTriggerMult float64

	// Adaptive exit
	ExitCandleLimit      int
	SlippageTolerance    float64
	TrailPolicy          string // atr | profitlock | none
	TrailActivationATR   float64
	TrailDistanceATR     float64
	ProfitLockFraction   float64
	StagnationPeriod     time.Duration
	TPRelaxFraction      float64
	MaxHold              time.Duration
	RetraceActivationATR float64
	RetraceKeepFraction  float64
	ReconcilePositions   bool

	// Journal
	JournalFile string
	JournalDSN  string

	// Telegram notifications, disabled when token is empty
	TelegramToken  string
	TelegramChatID int64

	// Logging configuration
	LogFile       string
	LogMaxSize    int // megabytes
	LogMaxBackups int // number of files
	LogMaxAge     int // days
	LogCompress   bool
	LogLevel      int // 0=DEBUG, 1=INFO, 2=WARNING, 3=ERROR
	Debug         bool
	// Status server configuration
	StatusAddr string
	// Daemon configuration
	DaemonMode bool
	PidFile    string
}

// LoadEnvFile loads a .env file into the environment if present.
// Variables already set win over the file.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// LoadConfig loads configuration from environment variables or uses defaults
func LoadConfig() *Config {
	return &Config{
		APIKey:         getEnv("OKX_API_KEY", ""),
		APISecret:      getEnv("OKX_API_SECRET", ""),
		Passphrase:     getEnv("OKX_PASSPHRASE", ""),
		RESTHost:       getEnv("OKX_REST_HOST", "https://www.okx.com"),
		WSPublicURL:    getEnv("OKX_WS_PUBLIC", "wss://ws.okx.com:8443/ws/v5/public"),
		Simulated:      getEnvAsBool("OKX_SIMULATED", false),
		RequestsPerSec: getEnvAsFloat("OKX_REQUESTS_PER_SEC", 8),
		PingPeriod:     25 * time.Second,
		PriceMaxAge:    getEnvAsDuration("PRICE_MAX_AGE", 15*time.Second),

		InstID:      getEnv("INST_ID", "XRP-USDT-SWAP"),
		Timeframe:   getEnv("TIMEFRAME", "5m"),
		CandleLimit: getEnvAsInt("CANDLE_LIMIT", 200),
		Leverage:    getEnvAsInt("LEVERAGE", 50),
		OrderSize:   getEnvAsFloat("ORDER_SIZE", 0.1),
		TickSize:    getEnvAsFloat("TICK_SIZE", 0.0001),
		LotSize:     getEnvAsFloat("LOT_SIZE", 0.01),

		PollInterval:   getEnvAsDuration("POLL_INTERVAL", 5*time.Minute),
		ExitInterval:   getEnvAsDuration("EXIT_INTERVAL", 30*time.Second),
		ErrorBackoff:   getEnvAsDuration("ERROR_BACKOFF", 5*time.Second),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),

		BollingerPeriod: 20,
		BollingerMult:   getEnvAsFloat("BB_MULT", 2.0),
		RSIPeriod:       14,
		EMAPeriod:       getEnvAsInt("EMA_PERIOD", 50),
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		ADXPeriod:       14,
		ATRPeriod:       14,

		MaxTradesPerHour: getEnvAsInt("MAX_TRADES_PER_HOUR", 3),
		CoolDown:         getEnvAsDuration("COOL_DOWN", 300*time.Second),
		MaxOpenPositions: getEnvAsInt("MAX_OPEN_POSITIONS", 1),
		// The open position cap is off unless asked for
		EnforceMaxOpen: getEnvAsBool("ENFORCE_MAX_OPEN", false),

		EntryPolicy:    strings.ToLower(getEnv("ENTRY_POLICY", "meanreversion")),
		UseRSIFilter:   getEnvAsBool("FILTER_RSI", false),
		RSIBuyMax:      getEnvAsFloat("RSI_BUY_MAX", 35),
		RSISellMin:     getEnvAsFloat("RSI_SELL_MIN", 65),
		UseHistFilter:  getEnvAsBool("FILTER_HIST", false),
		HistBuyMin:     getEnvAsFloat("HIST_BUY_MIN", -0.1),
		HistSellMax:    getEnvAsFloat("HIST_SELL_MAX", 0.1),
		UseEMAFilter:   getEnvAsBool("FILTER_EMA", false),
		EMABuyFloor:    0.98,
		EMASellCeil:    1.02,
		UseADXFilter:   getEnvAsBool("FILTER_ADX", false),
		ADXMin:         getEnvAsFloat("ADX_MIN", 20),
		BreakoutADXMin: getEnvAsFloat("BREAKOUT_ADX_MIN", 25),

		AtrSLMult:           getEnvAsFloat("ATR_SL_MULT", 1.5),
		AtrTPMult:           getEnvAsFloat("ATR_TP_MULT", 3.0),
		AtrTrailTriggerMult: getEnvAsFloat("ATR_TRAIL_TRIGGER_MULT", 1.0),

		ExitCandleLimit:      getEnvAsInt("EXIT_CANDLE_LIMIT", 50),
		SlippageTolerance:    getEnvAsFloat("SLIPPAGE_TOLERANCE", 0.1),
		TrailPolicy:          strings.ToLower(getEnv("TRAIL_POLICY", "atr")),
		TrailActivationATR:   getEnvAsFloat("TRAIL_ACTIVATION_ATR", 1.5),
		TrailDistanceATR:     getEnvAsFloat("TRAIL_DISTANCE_ATR", 1.0),
		ProfitLockFraction:   getEnvAsFloat("PROFIT_LOCK_FRACTION", 0.5),
		StagnationPeriod:     getEnvAsDuration("STAGNATION_PERIOD", 30*time.Minute),
		TPRelaxFraction:      getEnvAsFloat("TP_RELAX_FRACTION", 0.25),
		MaxHold:              getEnvAsDuration("MAX_HOLD", 4*time.Hour),
		RetraceActivationATR: getEnvAsFloat("RETRACE_ACTIVATION_ATR", 1.0),
		RetraceKeepFraction:  getEnvAsFloat("RETRACE_KEEP_FRACTION", 0.5),
		ReconcilePositions:   getEnvAsBool("RECONCILE_POSITIONS", true),

		JournalFile: getEnv("JOURNAL_FILE", "data/orders.json"),
		JournalDSN:  getEnv("JOURNAL_DSN", ""),

		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: int64(getEnvAsInt("TELEGRAM_CHAT_ID", 0)),

		// Logging defaults
		LogFile:       getEnv("LOG_FILE", "logs/swap_sentinel.log"),
		LogMaxSize:    10, // 10 MB
		LogMaxBackups: 5,
		LogMaxAge:     30,
		LogCompress:   true,
		LogLevel:      getEnvAsInt("LOG_LEVEL", 1),
		StatusAddr:    getEnv("STATUS_ADDR", "127.0.0.1:6061"),
		DaemonMode:    getEnvAsBool("DAEMON_MODE", false),
		PidFile:       getEnv("PID_FILE", "swap-sentinel.pid"),
	}
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, v ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, v...))
		}
	}

	check(c.InstID != "", "INST_ID is empty")
	check(c.CandleLimit >= c.BollingerPeriod && c.CandleLimit >= c.ATRPeriod,
		"CANDLE_LIMIT %d is below the indicator periods", c.CandleLimit)
	check(c.CandleLimit <= 300, "CANDLE_LIMIT %d exceeds the exchange maximum of 300", c.CandleLimit)
	check(c.OrderSize > 0, "ORDER_SIZE must be positive")
	check(c.PollInterval > 0 && c.ExitInterval > 0, "loop intervals must be positive")
	check(c.RequestTimeout > 0, "REQUEST_TIMEOUT must be positive")
	check(c.MaxTradesPerHour > 0, "MAX_TRADES_PER_HOUR must be positive")
	check(c.CoolDown >= 0, "COOL_DOWN must not be negative")
	check(c.EntryPolicy == "meanreversion" || c.EntryPolicy == "breakout",
		"ENTRY_POLICY %q is not one of meanreversion, breakout", c.EntryPolicy)
	check(c.TrailPolicy == "atr" || c.TrailPolicy == "profitlock" || c.TrailPolicy == "none",
		"TRAIL_POLICY %q is not one of atr, profitlock, none", c.TrailPolicy)
	check(c.AtrSLMult > 0 && c.AtrTPMult > 0, "ATR_SL_MULT and ATR_TP_MULT must be positive")
	check(c.ExitCandleLimit >= c.ATRPeriod, "EXIT_CANDLE_LIMIT %d is below ATR period %d", c.ExitCandleLimit, c.ATRPeriod)
	check(c.SlippageTolerance >= 0, "SLIPPAGE_TOLERANCE must not be negative")
	check(c.TPRelaxFraction >= 0 && c.TPRelaxFraction <= 1, "TP_RELAX_FRACTION must be within [0,1]")
	check(c.RetraceKeepFraction >= 0 && c.RetraceKeepFraction <= 1, "RETRACE_KEEP_FRACTION must be within [0,1]")
	check(c.ProfitLockFraction >= 0 && c.ProfitLockFraction <= 1, "PROFIT_LOCK_FRACTION must be within [0,1]")
	check(c.TelegramToken == "" || c.TelegramChatID != 0, "TELEGRAM_CHAT_ID is required with TELEGRAM_BOT_TOKEN")

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}

// HasCredentials reports whether private endpoints can be signed
func (c *Config) HasCredentials() bool {
	return c.APIKey != "" && c.APISecret != "" && c.Passphrase != ""
}

// getEnvAsBool gets an environment variable as a boolean value
func getEnvAsBool(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvAsInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("300")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
