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

package petri

import "fmt"

func errRequiredTokens(name string) error {
	return fmt.Errorf("action %q: required_tokens must be >= 1", name)
}

func errMutateAfterRun(name string) error {
	return fmt.Errorf("action %q: structural mutation after run() is forbidden", name)
}

func errAlreadyRunning() error {
	return fmt.Errorf("net is already running")
}

func errEmptyInitialMarking() error {
	return fmt.Errorf("initial marking is empty")
}

func errUnknownAction(id uint64) error {
	return fmt.Errorf("unknown action id %d", id)
}
