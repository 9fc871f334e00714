package campaigns

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("campaigns: not found")

// Store persists campaigns and their contact lists.
type Store interface {
	CreateCampaign(ctx context.Context, c Campaign) error
	GetCampaign(ctx context.Context, id string) (Campaign, error)
	UpdateCampaign(ctx context.Context, c Campaign) error
	// ListDialable returns active campaigns plus scheduled campaigns whose
	// activation time has arrived.
	ListDialable(ctx context.Context, now time.Time) ([]Campaign, error)

	AddContacts(ctx context.Context, contacts []Contact) error
	GetContact(ctx context.Context, id string) (Contact, error)
	// NextPending returns up to limit pending contacts, highest priority
	// first, ties broken by id.
	NextPending(ctx context.Context, campaignID string, limit int) ([]Contact, error)
	UpdateContact(ctx context.Context, c Contact) error
	// FindCallingContact locates the in-flight contact for a campaign and
	// phone number, used to settle it when the call ends.
	FindCallingContact(ctx context.Context, campaignID, phone string) (Contact, bool, error)
	CountByStatus(ctx context.Context, campaignID string) (map[ContactStatus]int, error)
}
