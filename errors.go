// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package zkensemble

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration  = errors.New("Invalid ensemble configuration")
	ErrPortAllocation = errors.New("Unable to allocate port")
	ErrProcessStart   = errors.New("Instance failed to start")
	ErrProcessStop    = errors.New("Instance failed to stop")
	ErrCleanup        = errors.New("Unable to clean up instance")
	ErrDisposed       = errors.New("Ensemble is disposed")
	ErrNoInstance     = errors.New("No such instance")
	ErrBadFormat      = errors.New("Unknown settings format")
)

// ConfigurationError reports settings that can never produce a valid
// ensemble.  It is returned synchronously by New and never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// PortAllocationError is returned when the operating system refuses to
// hand out an ephemeral port.
type PortAllocationError struct {
	Err error
}

func (e *PortAllocationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrPortAllocation, e.Err)
}

func (e *PortAllocationError) Unwrap() []error {
	return []error{ErrPortAllocation, e.Err}
}

// ProcessStartError is returned when an instance's server could not be
// launched, or launched but never answered the health check.
type ProcessStartError struct {
	ID  int
	Err error
}

func (e *ProcessStartError) Error() string {
	return fmt.Sprintf("%v: instance %d: %v", ErrProcessStart, e.ID, e.Err)
}

func (e *ProcessStartError) Unwrap() []error {
	return []error{ErrProcessStart, e.Err}
}

// CleanupError is returned by Dispose when an instance directory could not
// be removed even after retrying.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrCleanup, e.Path, e.Err)
}

func (e *CleanupError) Unwrap() []error {
	return []error{ErrCleanup, e.Err}
}
