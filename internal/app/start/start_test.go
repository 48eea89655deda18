package start_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/pgembed/internal/app/start"
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

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config start.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: start.ServiceConfig{
				DriverFactory: testFactory(&enginemock.MockDriver{}),
				Repository:    &storagemock.Repository{},
				Logger:        log.Noop,
			},
			expErr: false,
		},
		"missing driver factory should fail": {
			config: start.ServiceConfig{
				Repository: &storagemock.Repository{},
			},
			expErr: true,
		},
		"missing repository should fail": {
			config: start.ServiceConfig{
				DriverFactory: testFactory(&enginemock.MockDriver{}),
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			svc, err := start.NewService(test.config)

			if test.expErr {
				require.Error(err)
				require.Nil(svc)
			} else {
				require.NoError(err)
				require.NotNil(svc)
			}
		})
	}
}

func TestService_Run(t *testing.T) {
	createdAt := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	stoppedInstance := func() *model.Instance {
		return &model.Instance{
			ID:        "01H2QWERTYASDFGZXCVBNMLKJH",
			Name:      "my-instance",
			Status:    model.InstanceStatusStopped,
			Config:    model.InstanceConfig{Name: "my-instance"}.Defaults(),
			CreatedAt: createdAt,
		}
	}

	tests := map[string]struct {
		mockRepo   func(m *storagemock.Repository)
		mockDriver func(m *enginemock.MockDriver)
		req        start.Request
		expErr     bool
	}{
		"start stopped instance by name": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(stoppedInstance(), nil)
				m.On("UpdateInstance", mock.Anything, mock.MatchedBy(func(i model.Instance) bool {
					return i.ID == "01H2QWERTYASDFGZXCVBNMLKJH" &&
						i.Status == model.InstanceStatusRunning &&
						i.StartedAt != nil &&
						i.StoppedAt == nil
				})).Once().Return(nil)
			},
			mockDriver: func(m *enginemock.MockDriver) {
				m.On("Provision", mock.Anything).Once().Return(nil)
				m.On("Start", mock.Anything).Once().Return(nil)
			},
			req:    start.Request{NameOrID: "my-instance"},
			expErr: false,
		},
		"start stopped instance by ID": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "01H2QWERTYASDFGZXCVBNMLKJH").Once().Return(nil, model.ErrNotFound)
				m.On("GetInstance", mock.Anything, "01H2QWERTYASDFGZXCVBNMLKJH").Once().Return(stoppedInstance(), nil)
				m.On("UpdateInstance", mock.Anything, mock.MatchedBy(func(i model.Instance) bool {
					return i.Status == model.InstanceStatusRunning
				})).Once().Return(nil)
			},
			mockDriver: func(m *enginemock.MockDriver) {
				m.On("Provision", mock.Anything).Once().Return(nil)
				m.On("Start", mock.Anything).Once().Return(nil)
			},
			req:    start.Request{NameOrID: "01H2QWERTYASDFGZXCVBNMLKJH"},
			expErr: false,
		},
		"cannot start already running instance": {
			mockRepo: func(m *storagemock.Repository) {
				inst := stoppedInstance()
				inst.Status = model.InstanceStatusRunning
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(inst, nil)
			},
			mockDriver: func(m *enginemock.MockDriver) {
				// Driver start should not be called.
			},
			req:    start.Request{NameOrID: "my-instance"},
			expErr: true,
		},
		"instance not found should error": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "nonexistent").Once().Return(nil, model.ErrNotFound)
			},
			mockDriver: func(m *enginemock.MockDriver) {
				// Driver start should not be called.
			},
			req:    start.Request{NameOrID: "nonexistent"},
			expErr: true,
		},
		"provision error should propagate": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(stoppedInstance(), nil)
			},
			mockDriver: func(m *enginemock.MockDriver) {
				m.On("Provision", mock.Anything).Once().Return(fmt.Errorf("initdb error"))
				m.On("Close", mock.Anything).Once().Return(nil)
			},
			req:    start.Request{NameOrID: "my-instance"},
			expErr: true,
		},
		"driver start error should propagate": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(stoppedInstance(), nil)
			},
			mockDriver: func(m *enginemock.MockDriver) {
				m.On("Provision", mock.Anything).Once().Return(nil)
				m.On("Start", mock.Anything).Once().Return(fmt.Errorf("pg_ctl error"))
			},
			req:    start.Request{NameOrID: "my-instance"},
			expErr: true,
		},
		"repository update error should propagate": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(stoppedInstance(), nil)
				m.On("UpdateInstance", mock.Anything, mock.Anything).Once().Return(fmt.Errorf("database error"))
			},
			mockDriver: func(m *enginemock.MockDriver) {
				m.On("Provision", mock.Anything).Once().Return(nil)
				m.On("Start", mock.Anything).Once().Return(nil)
			},
			req:    start.Request{NameOrID: "my-instance"},
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

			svc, err := start.NewService(start.ServiceConfig{
				DriverFactory: testFactory(mDriver),
				Repository:    mRepo,
				Logger:        log.Noop,
			})
			require.NoError(err)

			// Execute
			result, err := svc.Run(context.Background(), test.req)

			// Verify
			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
				assert.NotNil(result)
				assert.Equal(model.InstanceStatusRunning, result.Status)
				assert.NotNil(result.StartedAt)
			}

			mRepo.AssertExpectations(t)
			mDriver.AssertExpectations(t)
		})
	}
}
