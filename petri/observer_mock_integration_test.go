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

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// TestSchedulerNotifiesMockObserver re-runs the S1 linear chain against a
// MockObserver instead of FuncObserver, asserting the exact enable/disable
// call sequence the reference codebase's gomock-based tests would expect
// (see coordinator/discovery/registry_test.go's gomock.InOrder usage).
func TestSchedulerNotifiesMockObserver(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	n := NewNet("S1-mock-observer")

	a, err := NewAction(1, "A", nil, 1)
	require.NoError(t, err)
	b, err := NewAction(2, "B", nil, 1)
	require.NoError(t, err)

	require.NoError(t, n.AddAction(a, true))
	require.NoError(t, n.AddAction(b, false))
	_, err = n.Connect(1, "A->B", a, b, nil, 0)
	require.NoError(t, err)

	observer := NewMockObserver(ctrl)
	gomock.InOrder(
		observer.EXPECT().OnEnableState(a),
		observer.EXPECT().OnDisableState(a),
		observer.EXPECT().OnEnableState(b),
		observer.EXPECT().OnDisableState(b),
		observer.EXPECT().OnTerminate(),
	)
	n.SetObserver(observer)

	require.NoError(t, n.Run())
	waitUntilStopped(t, n)
}
