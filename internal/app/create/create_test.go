package create_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/pgembed/internal/app/create"
	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/storage/storagemock"
)

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config create.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: create.ServiceConfig{
				Repository: &storagemock.Repository{},
				Logger:     log.Noop,
			},
			expErr: false,
		},
		"missing repository should fail": {
			config: create.ServiceConfig{},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			svc, err := create.NewService(test.config)

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
	tests := map[string]struct {
		mockRepo func(m *storagemock.Repository)
		req      create.Request
		expErr   bool
	}{
		"create instance registers it stopped with defaults applied": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("CreateInstance", mock.Anything, mock.MatchedBy(func(i model.Instance) bool {
					return i.Name == "my-instance" &&
						i.Status == model.InstanceStatusStopped &&
						i.ID != "" &&
						i.Fingerprint != "" &&
						i.Config.Port == 5432 &&
						!i.CreatedAt.IsZero()
				})).Once().Return(nil)
			},
			req:    create.Request{Config: model.InstanceConfig{Name: "my-instance"}},
			expErr: false,
		},
		"missing name should fail": {
			mockRepo: func(m *storagemock.Repository) {},
			req:      create.Request{Config: model.InstanceConfig{}},
			expErr:   true,
		},
		"invalid config should fail": {
			mockRepo: func(m *storagemock.Repository) {},
			req: create.Request{Config: model.InstanceConfig{
				Name:         "broken",
				DockerEngine: &model.DockerEngineConfig{},
			}},
			expErr: true,
		},
		"duplicated instance should fail": {
			mockRepo: func(m *storagemock.Repository) {
				m.On("CreateInstance", mock.Anything, mock.Anything).Once().Return(fmt.Errorf("already there: %w", model.ErrAlreadyExists))
			},
			req:    create.Request{Config: model.InstanceConfig{Name: "my-instance"}},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			// Setup
			mRepo := &storagemock.Repository{}
			test.mockRepo(mRepo)

			svc, err := create.NewService(create.ServiceConfig{
				Repository: mRepo,
				Logger:     log.Noop,
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
				assert.Len(result.ID, 26)
				assert.Equal(model.InstanceStatusStopped, result.Status)
			}

			mRepo.AssertExpectations(t)
		})
	}
}
