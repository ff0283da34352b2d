package main

import (
	"reflect"
	"testing"
)

func TestStripFlag(t *testing.T) {
	got := stripFlag([]string{"-debug", "-start-daemon", "--env", "prod.env", "--start-daemon"}, "start-daemon")
	want := []string{"-debug", "--env", "prod.env"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("stripFlag = %v, want %v", got, want)
	}
}
