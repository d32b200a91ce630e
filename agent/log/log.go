// Copyright 2016 Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may not
// use this file except in compliance with the License. A copy of the
// License is located at
//
// http://aws.amazon.com/apache2.0/
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND,
// either express or implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package log is used to initialize the reactor's logger. This package should be
// imported once, usually by the session facade, then GetLogger called from there.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cihub/seelog"
)

const (
	// DefaultLogDir is where the default rolling log files are written.
	DefaultLogDir = "log"

	// LogFile is the default log file name.
	LogFile = "scaproust.log"

	// ErrorFile is the default error log file name.
	ErrorFile = "errors.log"
)

// DefaultSeelogConfigFilePath is checked for an override before falling back
// to the built-in config.
var DefaultSeelogConfigFilePath = filepath.Join(".", "seelog.xml")

var (
	pkgMutex     = new(sync.Mutex)
	loadedLogger *T
	lock         sync.RWMutex
)

// GetLogger returns the process-wide logger, initializing it on first use.
func GetLogger() T {
	if !isLoaded() {
		cache(initLogger())
	}
	return getCached()
}

// GetLoggerWithConfig initializes the logger from explicit seelog XML config bytes.
// Intended for sessions that want a custom sink (e.g. test harnesses).
func GetLoggerWithConfig(seelogConfig []byte) T {
	logger := initLoggerFromBytes(seelogConfig)
	cache(logger)
	return getCached()
}

func isLoaded() bool {
	lock.RLock()
	defer lock.RUnlock()
	return loadedLogger != nil
}

func cache(logger T) {
	lock.Lock()
	defer lock.Unlock()
	loadedLogger = &logger
}

func getCached() T {
	lock.RLock()
	defer lock.RUnlock()
	return *loadedLogger
}

func initLogger() T {
	if _, err := os.Stat(DefaultSeelogConfigFilePath); err == nil {
		if configBytes, readErr := os.ReadFile(DefaultSeelogConfigFilePath); readErr == nil {
			return initLoggerFromBytes(configBytes)
		}
	}
	return initLoggerFromBytes(DefaultConfig())
}

func initLoggerFromBytes(seelogConfig []byte) T {
	base, err := seelog.LoggerFromConfigAsBytes(seelogConfig)
	if err != nil {
		fmt.Println("scaproust: error parsing seelog config, falling back to the default config:", err)
		base, _ = seelog.LoggerFromConfigAsBytes(DefaultConfig())
	}
	base.SetAdditionalStackDepth(2)
	return &Wrapper{
		Format:   &ContextFormatFilter{},
		M:        pkgMutex,
		Delegate: &DelegateLogger{BaseLoggerInstance: base},
	}
}

// WithContext returns a logger that prefixes every message with the given context tags.
func WithContext(context ...string) T {
	return GetLogger().WithContext(context...)
}

// ContextFormatFilter prepends fixed context tags ahead of a log message's parameters.
type ContextFormatFilter struct {
	Context []string
}

// Filter adds the context at the beginning of the parameter slice.
func (f *ContextFormatFilter) Filter(params ...interface{}) (newParams []interface{}) {
	newParams = make([]interface{}, len(f.Context)+len(params))
	for i, param := range f.Context {
		newParams[i] = param + " "
	}
	for i, param := range params {
		newParams[len(f.Context)+i] = param
	}
	return newParams
}

// Filterf prepends the context ahead of the format string.
func (f *ContextFormatFilter) Filterf(format string, params ...interface{}) (newFormat string, newParams []interface{}) {
	for _, param := range f.Context {
		newFormat += param + " "
	}
	newFormat += format
	return newFormat, params
}
