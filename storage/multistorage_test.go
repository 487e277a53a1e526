package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEnvelopeStore implements interfaces.EnvelopeStore for testing
type MockEnvelopeStore struct {
	mock.Mock
	name string
}

func (m *MockEnvelopeStore) Save(ctx context.Context, slot string, envelope []byte) error {
	args := m.Called(ctx, slot, envelope)
	return args.Error(0)
}

func (m *MockEnvelopeStore) Load(ctx context.Context, slot string) ([]byte, error) {
	args := m.Called(ctx, slot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockEnvelopeStore) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockEnvelopeStore) Name() string {
	return m.name
}

func (m *MockEnvelopeStore) LocationURI() string {
	return "mock:"
}

func TestMultiStore_Available(t *testing.T) {
	tests := []struct {
		name     string
		stores   []bool
		expected bool
	}{
		{
			name:     "all stores available",
			stores:   []bool{true, true, true},
			expected: true,
		},
		{
			name:     "some stores available",
			stores:   []bool{false, true, false},
			expected: true,
		},
		{
			name:     "no stores available",
			stores:   []bool{false, false, false},
			expected: false,
		},
		{
			name:     "no stores",
			stores:   []bool{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stores []interfaces.EnvelopeStore
			for i, available := range tt.stores {
				mockStore := &MockEnvelopeStore{name: fmt.Sprintf("mock-A%x", i)}
				mockStore.On("Available", mock.Anything).Return(available).Maybe()
				stores = append(stores, mockStore)
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStore(stores, logger)

			result := multi.Available(context.Background())
			assert.Equal(t, tt.expected, result)

			for _, store := range stores {
				mockStore := store.(*MockEnvelopeStore)
				mockStore.AssertExpectations(t)
			}
		})
	}
}

func TestMultiStore_Load(t *testing.T) {
	testSlot := "attestation-key"
	testData := []byte("sealed envelope bytes")
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.EnvelopeStore
		expectedData  []byte
		expectedError error
	}{
		{
			name: "first store successful",
			setupMocks: func() []interfaces.EnvelopeStore {
				mock1 := &MockEnvelopeStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Load", mock.Anything, testSlot).Return(testData, nil)

				mock2 := &MockEnvelopeStore{name: "mock-B"}
				// This mock should not be called as the first one succeeds

				return []interfaces.EnvelopeStore{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "first store fails, second succeeds",
			setupMocks: func() []interfaces.EnvelopeStore {
				mock1 := &MockEnvelopeStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Load", mock.Anything, testSlot).Return(nil, testErr)

				mock2 := &MockEnvelopeStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Load", mock.Anything, testSlot).Return(testData, nil)

				return []interfaces.EnvelopeStore{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "all stores fail",
			setupMocks: func() []interfaces.EnvelopeStore {
				mock1 := &MockEnvelopeStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Load", mock.Anything, testSlot).Return(nil, testErr)

				mock2 := &MockEnvelopeStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Load", mock.Anything, testSlot).Return(nil, testErr)

				return []interfaces.EnvelopeStore{mock1, mock2}
			},
			expectedError: testErr,
		},
		{
			name: "unavailable stores are skipped",
			setupMocks: func() []interfaces.EnvelopeStore {
				mock1 := &MockEnvelopeStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)
				// Load should not be called

				mock2 := &MockEnvelopeStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Load", mock.Anything, testSlot).Return(testData, nil)

				return []interfaces.EnvelopeStore{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "empty slot everywhere reports not found",
			setupMocks: func() []interfaces.EnvelopeStore {
				mock1 := &MockEnvelopeStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Load", mock.Anything, testSlot).Return(nil, interfaces.ErrEnvelopeNotFound)

				mock2 := &MockEnvelopeStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Load", mock.Anything, testSlot).Return(nil, interfaces.ErrEnvelopeNotFound)

				return []interfaces.EnvelopeStore{mock1, mock2}
			},
			expectedError: interfaces.ErrEnvelopeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStore(stores, logger)

			data, err := multi.Load(context.Background(), testSlot)

			if tt.expectedError != nil {
				assert.Error(t, err)
				if errors.Is(tt.expectedError, interfaces.ErrEnvelopeNotFound) {
					assert.ErrorIs(t, err, interfaces.ErrEnvelopeNotFound)
				}
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedData, data)

			for _, store := range stores {
				mockStore := store.(*MockEnvelopeStore)
				mockStore.AssertExpectations(t)
			}
		})
	}
}

func TestMultiStore_Save(t *testing.T) {
	testSlot := "attestation-key"
	testData := []byte("sealed envelope bytes")
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.EnvelopeStore
		expectedError bool
	}{
		{
			name: "all stores successful",
			setupMocks: func() []interfaces.EnvelopeStore {
				mock1 := &MockEnvelopeStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Save", mock.Anything, testSlot, testData).Return(nil)

				mock2 := &MockEnvelopeStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Save", mock.Anything, testSlot, testData).Return(nil)

				return []interfaces.EnvelopeStore{mock1, mock2}
			},
		},
		{
			name: "some stores fail",
			setupMocks: func() []interfaces.EnvelopeStore {
				mock1 := &MockEnvelopeStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Save", mock.Anything, testSlot, testData).Return(nil)

				mock2 := &MockEnvelopeStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Save", mock.Anything, testSlot, testData).Return(testErr)

				return []interfaces.EnvelopeStore{mock1, mock2}
			},
		},
		{
			name: "all stores fail",
			setupMocks: func() []interfaces.EnvelopeStore {
				mock1 := &MockEnvelopeStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Save", mock.Anything, testSlot, testData).Return(testErr)

				mock2 := &MockEnvelopeStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Save", mock.Anything, testSlot, testData).Return(testErr)

				return []interfaces.EnvelopeStore{mock1, mock2}
			},
			expectedError: true,
		},
		{
			name: "unavailable stores are skipped",
			setupMocks: func() []interfaces.EnvelopeStore {
				mock1 := &MockEnvelopeStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)
				// Save should not be called

				mock2 := &MockEnvelopeStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Save", mock.Anything, testSlot, testData).Return(nil)

				return []interfaces.EnvelopeStore{mock1, mock2}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStore(stores, logger)

			err := multi.Save(context.Background(), testSlot, testData)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			for _, store := range stores {
				mockStore := store.(*MockEnvelopeStore)
				mockStore.AssertExpectations(t)
			}
		})
	}
}
