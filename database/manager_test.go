/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *defaultDatabaseManager {
	return NewDatabaseManager(&ConnectionConfig{
		Host:              "127.0.0.1",
		Database:          "app",
		EnableReconnect:   true,
		MaxReconnectTries: 3,
	}).(*defaultDatabaseManager)
}

func TestReconnectAfterDisconnect(t *testing.T) {
	dm := newTestManager()
	stop := make(chan struct{})
	dm.stopHealthCheck = stop

	require.NoError(t, dm.Disconnect())
	assert.Nil(t, dm.stopHealthCheck)

	err := dm.reconnect(context.Background(), stop)
	assert.ErrorIs(t, err, errManagerStopped)
	assert.Nil(t, dm.GetClient())
	assert.Nil(t, dm.stopHealthCheck, "no health loop restarted")
}

func TestHandleReconnectStopsAfterDisconnect(t *testing.T) {
	dm := newTestManager()
	stop := make(chan struct{})
	dm.stopHealthCheck = stop
	require.NoError(t, dm.Disconnect())

	dm.handleReconnect(stop)
	assert.Nil(t, dm.GetClient())
	assert.False(t, dm.connected)
	assert.Equal(t, 1, dm.reconnectTries)
}

func TestHandleReconnectGivesUp(t *testing.T) {
	dm := newTestManager()
	dm.reconnectTries = dm.config.MaxReconnectTries

	dm.handleReconnect(make(chan struct{}))
	assert.Equal(t, dm.config.MaxReconnectTries, dm.reconnectTries)
	assert.Nil(t, dm.GetClient())
}
