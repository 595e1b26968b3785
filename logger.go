package main

import "log"

var logger = log.New(log.Writer(), "[roundsettle] ", log.LstdFlags|log.Lmicroseconds)

// Log initial logging methods
// just a combination of log.Printf + package prefix
func Log(msg string, args ...interface{}) {
	logger.Printf(msg, args...)
}
