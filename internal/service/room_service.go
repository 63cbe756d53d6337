package service

import (
	"context"
	"errors"
	"strings"

	"zala/internal/domain"
	"zala/internal/models"

	"github.com/rs/zerolog"
)

type RoomService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewRoomService(repo domain.Repository, logger *zerolog.Logger) *RoomService {
	return &RoomService{repo: repo, logger: logger}
}

func (s *RoomService) validate(room *models.Room) error {
	room.Name = strings.TrimSpace(room.Name)
	if room.Name == "" {
		return errors.New("room name is required")
	}
	if room.Capacity < 0 {
		return errors.New("room capacity must be non-negative")
	}
	return nil
}

func (s *RoomService) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := s.validate(room); err != nil {
		return err
	}
	room.IsActive = true
	return s.repo.CreateRoom(ctx, room)
}

func (s *RoomService) UpdateRoom(ctx context.Context, room *models.Room) error {
	if err := s.validate(room); err != nil {
		return err
	}
	return s.repo.UpdateRoom(ctx, room)
}

func (s *RoomService) DeactivateRoom(ctx context.Context, id int64) error {
	return s.repo.DeactivateRoom(ctx, id)
}

// DeleteRoom removes the room and, through the storage cascade, all of
// its bookings.
func (s *RoomService) DeleteRoom(ctx context.Context, id int64) error {
	return s.repo.DeleteRoom(ctx, id)
}

func (s *RoomService) GetRoomByID(ctx context.Context, id int64) (*models.Room, error) {
	return s.repo.GetRoomByID(ctx, id)
}

func (s *RoomService) GetRoomByName(ctx context.Context, name string) (*models.Room, error) {
	return s.repo.GetRoomByName(ctx, name)
}

func (s *RoomService) GetActiveRooms(ctx context.Context) ([]*models.Room, error) {
	return s.repo.GetActiveRooms(ctx)
}

func (s *RoomService) GetAllRooms(ctx context.Context) ([]*models.Room, error) {
	return s.repo.GetAllRooms(ctx)
}

// SeedRooms upserts the rooms listed in the config seed file.
func (s *RoomService) SeedRooms(ctx context.Context, rooms []models.Room) error {
	for i := range rooms {
		room := rooms[i]
		if err := s.validate(&room); err != nil {
			return err
		}
		if err := s.repo.UpsertRoom(ctx, &room); err != nil {
			return err
		}
		if s.logger != nil {
			s.logger.Info().Str("room", room.Name).Msg("room seeded")
		}
	}
	return nil
}
