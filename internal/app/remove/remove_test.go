package remove_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/pgembed/internal/app/remove"
	"github.com/slok/pgembed/internal/engine"
	"github.com/slok/pgembed/internal/engine/enginemock"
	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/storage/storagemock"
)

func testFactory(drv engine.Driver) engine.Factory {
	return func(instanceID string, cfg model.InstanceConfig) (engine.Driver, error) {
		return drv, nil
	}
}

func TestService_Run(t *testing.T) {
	instanceWithStatus := func(status model.InstanceStatus) *model.Instance {
		return &model.Instance{
			ID:     "01H2QWERTYASDFGZXCVBNMLKJH",
			Name:   "my-instance",
			Status: status,
			Config: model.InstanceConfig{Name: "my-instance"}.Defaults(),
		}
	}

	tests := map[string]struct {
		mockRepo   func(m *storagemock.Repository)
		mockDriver func(m *enginemock.MockDriver)
		req        remove.Request
		expErr     bool
	}{
		"remove stopped instance releases resources and deletes the record": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(instanceWithStatus(model.InstanceStatusStopped), nil)
				m.On("DeleteInstance", mock.Anything, "01H2QWERTYASDFGZXCVBNMLKJH").Once().Return(nil)
			},
			mockDriver: func(m *enginemock.MockDriver) {
				m.On("Close", mock.Anything).Once().Return(nil)
			},
			req:    remove.Request{NameOrID: "my-instance"},
			expErr: false,
		},
		"remove running instance without force should fail": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(instanceWithStatus(model.InstanceStatusRunning), nil)
			},
			mockDriver: func(m *enginemock.MockDriver) {
				// Driver should not be touched.
			},
			req:    remove.Request{NameOrID: "my-instance"},
			expErr: true,
		},
		"remove running instance with force stops it first": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(instanceWithStatus(model.InstanceStatusRunning), nil)
				m.On("DeleteInstance", mock.Anything, "01H2QWERTYASDFGZXCVBNMLKJH").Once().Return(nil)
			},
			mockDriver: func(m *enginemock.MockDriver) {
				m.On("Stop", mock.Anything).Once().Return(nil)
				m.On("Close", mock.Anything).Once().Return(nil)
			},
			req:    remove.Request{NameOrID: "my-instance", Force: true},
			expErr: false,
		},
		"instance not found should error": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "nonexistent").Once().Return(nil, model.ErrNotFound)
			},
			mockDriver: func(m *enginemock.MockDriver) {},
			req:        remove.Request{NameOrID: "nonexistent"},
			expErr:     true,
		},
		"repository delete error should propagate": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(instanceWithStatus(model.InstanceStatusStopped), nil)
				m.On("DeleteInstance", mock.Anything, "01H2QWERTYASDFGZXCVBNMLKJH").Once().Return(fmt.Errorf("database error"))
			},
			mockDriver: func(m *enginemock.MockDriver) {
				m.On("Close", mock.Anything).Once().Return(nil)
			},
			req:    remove.Request{NameOrID: "my-instance"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			// Setup
			mRepo := &storagemock.Repository{}
			mDriver := &enginemock.MockDriver{}
			test.mockRepo(mRepo)
			test.mockDriver(mDriver)

			svc, err := remove.NewService(remove.ServiceConfig{
				DriverFactory: testFactory(mDriver),
				Repository:    mRepo,
				Logger:        log.Noop,
			})
			require.NoError(err)

			// Execute
			err = svc.Run(context.Background(), test.req)

			// Verify
			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}

			mRepo.AssertExpectations(t)
			mDriver.AssertExpectations(t)
		})
	}
}
