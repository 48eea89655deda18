package status_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/pgembed/internal/app/status"
	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/storage/storagemock"
)

func TestService_Run(t *testing.T) {
	createdAt := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	instanceWithStatus := func(st model.InstanceStatus) *model.Instance {
		return &model.Instance{
			ID:        "01H2QWERTYASDFGZXCVBNMLKJH",
			Name:      "my-instance",
			Status:    st,
			Config:    model.InstanceConfig{Name: "my-instance", Port: 5433}.Defaults(),
			CreatedAt: createdAt,
		}
	}

	tests := map[string]struct {
		mockRepo func(m *storagemock.Repository)
		req      status.Request
		expConn  bool
		expErr   bool
	}{
		"a running instance should include connection info": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(instanceWithStatus(model.InstanceStatusRunning), nil)
			},
			req:     status.Request{NameOrID: "my-instance"},
			expConn: true,
		},
		"a stopped instance should not include connection info": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "my-instance").Once().Return(instanceWithStatus(model.InstanceStatusStopped), nil)
			},
			req: status.Request{NameOrID: "my-instance"},
		},
		"lookup by ID should fall back after a name miss": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "01H2QWERTYASDFGZXCVBNMLKJH").Once().Return(nil, model.ErrNotFound)
				m.On("GetInstance", mock.Anything, "01H2QWERTYASDFGZXCVBNMLKJH").Once().Return(instanceWithStatus(model.InstanceStatusStopped), nil)
			},
			req: status.Request{NameOrID: "01H2QWERTYASDFGZXCVBNMLKJH"},
		},
		"a missing instance should error": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("GetInstanceByName", mock.Anything, "nonexistent").Once().Return(nil, model.ErrNotFound)
			},
			req:    status.Request{NameOrID: "nonexistent"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mRepo := &storagemock.Repository{}
			test.mockRepo(mRepo)

			svc, err := status.NewService(status.ServiceConfig{
				Repository: mRepo,
				Logger:     log.Noop,
			})
			require.NoError(err)

			resp, err := svc.Run(context.Background(), test.req)

			if test.expErr {
				assert.Error(err)
			} else {
				require.NoError(err)
				assert.Equal("my-instance", resp.Instance.Name)
				if test.expConn {
					require.NotNil(resp.ConnectionInfo)
					assert.Equal(5433, resp.ConnectionInfo.Port)
				} else {
					assert.Nil(resp.ConnectionInfo)
				}
			}

			mRepo.AssertExpectations(t)
		})
	}
}
