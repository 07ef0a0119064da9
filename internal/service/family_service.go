package service

import (
	"errors"

	"choreboard/internal/credentials"
	"choreboard/internal/models"
	"choreboard/internal/repository"
	"choreboard/internal/validation"
)

// maxCodeAttempts bounds the invite-code retry loop. With a 36^6 code space
// this only trips when the generator is broken or the table is absurdly full.
const maxCodeAttempts = 5

// familyStore is the subset of FamilyRepository the service needs
type familyStore interface {
	CreateFamily(name, inviteCode string, creatorID int64) (*models.Family, error)
	GetFamilyByID(id int64) (*models.Family, error)
	GetFamilyByInviteCode(code string) (*models.Family, error)
	UpdateInviteCode(familyID int64, code string) error
	GetFamilyMembers(familyID int64) ([]models.Member, error)
}

// memberStore is the subset of UserRepository the service needs
type memberStore interface {
	AttachToFamily(userID, familyID int64) (bool, error)
	CreateGuest(familyID int64, displayName, role string) (*models.User, error)
	UpdateProfile(userID int64, role, displayName string) error
}

// FamilyService manages family membership: creation, invite codes, joining,
// and member profiles
type FamilyService struct {
	families familyStore
	members  memberStore
	codes    credentials.CodeGenerator
}

// NewFamilyService creates a new family service
func NewFamilyService(families familyStore, members memberStore, codes credentials.CodeGenerator) *FamilyService {
	return &FamilyService{families: families, members: members, codes: codes}
}

// CreateFamily creates a family with a fresh invite code and attaches the
// creator. Fails with ErrConflict when the creator already has a family.
func (s *FamilyService) CreateFamily(user *models.User, name string) (*models.Family, error) {
	if err := validation.ValidateFamilyName(name); err != nil {
		return nil, err
	}
	if user.HasFamily() {
		return nil, ErrConflict
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes.NewCode()
		if err != nil {
			return nil, ErrUnavailable
		}

		family, err := s.families.CreateFamily(name, code, user.ID)
		if errors.Is(err, repository.ErrDuplicateInviteCode) {
			continue
		}
		if errors.Is(err, repository.ErrAlreadyInFamily) {
			return nil, ErrConflict
		}
		if err != nil {
			return nil, ErrUnavailable
		}
		return family, nil
	}

	return nil, ErrUnavailable
}

// JoinFamily attaches the user to the family behind an invite code
func (s *FamilyService) JoinFamily(user *models.User, inviteCode string) (*models.Family, error) {
	code := validation.NormalizeInviteCode(inviteCode)
	if err := validation.ValidateInviteCode(code); err != nil {
		return nil, err
	}
	if user.HasFamily() {
		return nil, ErrConflict
	}

	family, err := s.families.GetFamilyByInviteCode(code)
	if err != nil {
		return nil, ErrUnavailable
	}
	if family == nil {
		return nil, ErrNotFound
	}

	attached, err := s.members.AttachToFamily(user.ID, family.ID)
	if err != nil {
		return nil, ErrUnavailable
	}
	if !attached {
		return nil, ErrConflict
	}
	return family, nil
}

// GuestJoin creates a guest member inside the family behind an invite code.
// The caller gets the new user back and opens a session for it.
func (s *FamilyService) GuestJoin(inviteCode, displayName, role string) (*models.User, *models.Family, error) {
	code := validation.NormalizeInviteCode(inviteCode)
	if err := validation.ValidateInviteCode(code); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidateDisplayName(displayName); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidateRole(role); err != nil {
		return nil, nil, err
	}

	family, err := s.families.GetFamilyByInviteCode(code)
	if err != nil {
		return nil, nil, ErrUnavailable
	}
	if family == nil {
		return nil, nil, ErrNotFound
	}

	guest, err := s.members.CreateGuest(family.ID, displayName, role)
	if err != nil {
		return nil, nil, ErrUnavailable
	}
	return guest, family, nil
}

// RegenerateInviteCode replaces the family's invite code with a fresh one.
// Only the family's creator may rotate the code; the old code stops working
// immediately.
func (s *FamilyService) RegenerateInviteCode(user *models.User) (*models.Family, error) {
	if !user.HasFamily() {
		return nil, ErrForbidden
	}

	family, err := s.getFamily(*user.FamilyID)
	if err != nil {
		return nil, err
	}
	if family.CreatedBy != user.ID {
		return nil, ErrForbidden
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes.NewCode()
		if err != nil {
			return nil, ErrUnavailable
		}

		err = s.families.UpdateInviteCode(family.ID, code)
		if errors.Is(err, repository.ErrDuplicateInviteCode) {
			continue
		}
		if err != nil {
			return nil, ErrUnavailable
		}
		return s.getFamily(family.ID)
	}

	return nil, ErrUnavailable
}

// SetProfile sets the caller's family role and display name
func (s *FamilyService) SetProfile(user *models.User, role, displayName string) error {
	if err := validation.ValidateRole(role); err != nil {
		return err
	}
	if err := validation.ValidateDisplayName(displayName); err != nil {
		return err
	}

	if err := s.members.UpdateProfile(user.ID, role, displayName); err != nil {
		return ErrUnavailable
	}
	return nil
}

// GetMyFamily returns the caller's family with its members, or nil when the
// caller has not joined one yet
func (s *FamilyService) GetMyFamily(user *models.User) (*models.FamilyWithMembers, error) {
	if !user.HasFamily() {
		return nil, nil
	}

	family, err := s.getFamily(*user.FamilyID)
	if err != nil {
		return nil, err
	}

	members, err := s.families.GetFamilyMembers(family.ID)
	if err != nil {
		return nil, ErrUnavailable
	}

	return &models.FamilyWithMembers{Family: *family, Members: members}, nil
}

func (s *FamilyService) getFamily(familyID int64) (*models.Family, error) {
	family, err := s.families.GetFamilyByID(familyID)
	if err != nil {
		return nil, ErrUnavailable
	}
	if family == nil {
		return nil, ErrNotFound
	}
	return family, nil
}
