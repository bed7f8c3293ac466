package domain

import (
	"errors"
	"fmt"

	"github.com/cwrk-planet/lobby-service/pkg/errs"
)

var (
	ErrRoomNotFound = errs.New(errs.ErrNotFound, "room not found")
	ErrUserNotFound = errs.New(errs.ErrNotFound, "user not found")

	ErrRoomFull                = errs.New(errs.ErrConflict, "room is full")
	ErrAlreadyJoined           = errs.New(errs.ErrConflict, "user already joined the room")
	ErrRoomCodeTaken           = errs.New(errs.ErrConflict, "room code already taken")
	ErrCodeGenerationExhausted = errs.New(errs.ErrConflict, "could not allocate a unique room code")
	ErrMatchExists             = errs.New(errs.ErrConflict, "match already exists")
	ErrTournamentCodeTaken     = errs.New(errs.ErrConflict, "tournament code already used")

	ErrInvalidStateTransition = errs.New(errs.ErrInvalidState, "invalid room state transition")
	ErrUnauthorized           = errs.New(errs.ErrForbidden, "only the room host can do this")
	ErrUnauthenticated        = errs.New(errs.ErrUnauthorized, "invalid or missing identity")

	ErrInvalidTitle             = errs.New(errs.ErrInvalidInput, "title must be 2-50 characters")
	ErrInvalidMaxParticipants   = errs.New(errs.ErrInvalidInput, "max participants must be a multiple of 5 between 10 and 50")
	ErrInvalidCompositionMethod = errs.New(errs.ErrInvalidInput, "unknown team composition method")
	ErrOddParticipantCount      = errs.New(errs.ErrInvalidInput, "auto composition needs an even number of participants")
	ErrInvalidParticipantCount  = errs.New(errs.ErrInvalidInput, "participant count must be a positive multiple of 10")
)

// Стадии цепочки провижининга.
const (
	StageProvider   = "provider"
	StageTournament = "tournament"
	StageCodes      = "codes"
)

// ProvisioningError ошибка одной из стадий; errors.Is видит и
// errs.ErrProvisioning, и исходную причину.
type ProvisioningError struct {
	Stage string
	Err   error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning failed at %s: %v", e.Stage, e.Err)
}

func (e *ProvisioningError) Unwrap() []error {
	return []error{errs.ErrProvisioning, e.Err}
}

// StageOf возвращает стадию, если err - ошибка провижининга.
func StageOf(err error) string {
	var pe *ProvisioningError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}
