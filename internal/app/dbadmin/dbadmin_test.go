package dbadmin_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/pgembed/internal/app/dbadmin"
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

func newTestService(t *testing.T, mRepo *storagemock.Repository, mDriver *enginemock.MockDriver) *dbadmin.Service {
	svc, err := dbadmin.NewService(dbadmin.ServiceConfig{
		DriverFactory: testFactory(mDriver),
		Repository:    mRepo,
		Logger:        log.Noop,
	})
	require.NoError(t, err)
	return svc
}

func instanceWithStatus(status model.InstanceStatus) *model.Instance {
	return &model.Instance{
		ID:     "01H2QWERTYASDFGZXCVBNMLKJH",
		Name:   "my-instance",
		Status: status,
		Config: model.InstanceConfig{Name: "my-instance"}.Defaults(),
	}
}

func TestService_CreateDatabase(t *testing.T) {
	tests := map[string]struct {
		mockRepo   func(m *storagemock.Repository)
		mockDriver func(m *enginemock.MockDriver)
		req        dbadmin.Request
		expErr     bool
	}{
		"create database on running instance": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(instanceWithStatus(model.InstanceStatusRunning), nil)
			},
			mockDriver: func(m *enginemock.MockDriver) {
				m.On("CreateDatabase", mock.Anything, "app").Once().Return(nil)
			},
			req:    dbadmin.Request{NameOrID: "my-instance", Database: "app"},
			expErr: false,
		},
		"create database on stopped instance should fail": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(instanceWithStatus(model.InstanceStatusStopped), nil)
			},
			mockDriver: func(m *enginemock.MockDriver) {},
			req:        dbadmin.Request{NameOrID: "my-instance", Database: "app"},
			expErr:     true,
		},
		"driver error should propagate": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(instanceWithStatus(model.InstanceStatusRunning), nil)
			},
			mockDriver: func(m *enginemock.MockDriver) {
				m.On("CreateDatabase", mock.Anything, "app").Once().Return(fmt.Errorf("createdb error"))
			},
			req:    dbadmin.Request{NameOrID: "my-instance", Database: "app"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			mRepo := &storagemock.Repository{}
			mDriver := &enginemock.MockDriver{}
			test.mockRepo(mRepo)
			test.mockDriver(mDriver)
			svc := newTestService(t, mRepo, mDriver)

			err := svc.CreateDatabase(context.Background(), test.req)

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

func TestService_DropDatabase(t *testing.T) {
	assert := assert.New(t)

	mRepo := &storagemock.Repository{}
	mRepo.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(instanceWithStatus(model.InstanceStatusRunning), nil)
	mDriver := &enginemock.MockDriver{}
	mDriver.On("DropDatabase", mock.Anything, "app").Once().Return(nil)
	svc := newTestService(t, mRepo, mDriver)

	err := svc.DropDatabase(context.Background(), dbadmin.Request{NameOrID: "my-instance", Database: "app"})

	assert.NoError(err)
	mRepo.AssertExpectations(t)
	mDriver.AssertExpectations(t)
}

func TestService_DatabaseExists(t *testing.T) {
	tests := map[string]struct {
		exists bool
	}{
		"existing database":     {exists: true},
		"non existing database": {exists: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			mRepo := &storagemock.Repository{}
			mRepo.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(instanceWithStatus(model.InstanceStatusRunning), nil)
			mDriver := &enginemock.MockDriver{}
			mDriver.On("DatabaseExists", mock.Anything, "app").Once().Return(test.exists, nil)
			svc := newTestService(t, mRepo, mDriver)

			exists, err := svc.DatabaseExists(context.Background(), dbadmin.Request{NameOrID: "my-instance", Database: "app"})

			assert.NoError(err)
			assert.Equal(test.exists, exists)
			mRepo.AssertExpectations(t)
			mDriver.AssertExpectations(t)
		})
	}
}
