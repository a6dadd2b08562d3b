package database

import (
	"github.com/stretchr/testify/mock"
	"github.com/zerochat/zerochat/internal/types"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) CreateRoom(room types.Room) error {
	args := m.Called(room)
	return args.Error(0)
}
func (m *MockChatRepository) GetRoom(roomId string) (types.Room, error) {
	args := m.Called(roomId)
	return args.Get(0).(types.Room), args.Error(1)
}
func (m *MockChatRepository) UpdateRoomPassphrase(roomId, passphraseHash string) error {
	args := m.Called(roomId, passphraseHash)
	return args.Error(0)
}
func (m *MockChatRepository) CreateMessage(msg types.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}
func (m *MockChatRepository) GetMessages(roomId string) ([]types.Message, error) {
	args := m.Called(roomId)
	if msgs, ok := args.Get(0).([]types.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) DeleteMessages(roomId string) error {
	args := m.Called(roomId)
	return args.Error(0)
}
func (m *MockChatRepository) CreateFileShare(fs types.FileShare) error {
	args := m.Called(fs)
	return args.Error(0)
}
func (m *MockChatRepository) GetFileShares(roomId string) ([]types.FileShare, error) {
	args := m.Called(roomId)
	if shares, ok := args.Get(0).([]types.FileShare); ok {
		return shares, args.Error(1)
	}
	return nil, args.Error(1)
}
