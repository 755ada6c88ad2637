package usecase

import (
	"context"
	"fmt"

	repository "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
)

// SetBlockInput carries a directed block edit: owner blocks or unblocks
// target.
type SetBlockInput struct {
	OwnerID  string
	TargetID string
	Blocked  bool
}

// SetBlockUseCase edits the block relation. The effect is immediately
// visible to the send path, which consults the store on every send.
type SetBlockUseCase struct {
	Repo repository.ChatRepository
}

func NewSetBlockUseCase(repo repository.ChatRepository) *SetBlockUseCase {
	return &SetBlockUseCase{Repo: repo}
}

func (uc *SetBlockUseCase) Execute(ctx context.Context, in SetBlockInput) error {
	if in.OwnerID == "" || in.TargetID == "" {
		return fmt.Errorf("owner_id and target_id are required")
	}
	if in.OwnerID == in.TargetID {
		return fmt.Errorf("cannot block yourself")
	}
	if err := uc.Repo.SetBlock(ctx, in.OwnerID, in.TargetID, in.Blocked); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
