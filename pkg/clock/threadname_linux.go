// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

//go:build linux

package clock

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// SetThreadName names the calling OS thread for tools like top/perf to
// show which worker or manager goroutine is running. Best-effort: the
// name is truncated to 15 bytes by the kernel and failures are ignored,
// since this is a debugging aid, not a contract the engine depends on.
// It names the OS thread the calling goroutine is running on at the moment
// of the call; unless the caller has locked the goroutine to its thread
// with runtime.LockOSThread, the goroutine may later move to another
// thread and the name stays with the old one.
func SetThreadName(name string) {
	if len(name) > 15 {
		name = name[:15]
	}
	b := append([]byte(name), 0)
	_ = unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&b[0])), 0, 0, 0)
}
