package attribution

import (
	"strings"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

// Resolver maps events to household members by the provider account they
// came from. Built once per sync cycle from the user's members and accounts;
// resolution itself is pure lookup.
type Resolver struct {
	byAccountID map[string]string // account id -> member id
	byEmail     map[string]string // lowercased account email -> member id
}

// NewResolver builds the lookup tables. Members are processed in the given
// order and the first member to claim an account keeps it, so member
// creation order decides ties when two members list the same account.
//
// Accounts enrich email-only links: a member connected by email alone still
// claims the matching account id, which is what event payloads carry.
func NewResolver(members []store.Member, accounts []store.Account) *Resolver {
	r := &Resolver{
		byAccountID: make(map[string]string),
		byEmail:     make(map[string]string),
	}

	emailToAccountID := make(map[string]string, len(accounts))
	for _, a := range accounts {
		if a.Email != "" {
			emailToAccountID[strings.ToLower(a.Email)] = a.ID
		}
	}

	for _, m := range members {
		for _, link := range m.ConnectedAccounts {
			if link.AccountID != "" {
				if _, taken := r.byAccountID[link.AccountID]; !taken {
					r.byAccountID[link.AccountID] = m.ID
				}
			}
			if link.Email != "" {
				email := strings.ToLower(link.Email)
				if _, taken := r.byEmail[email]; !taken {
					r.byEmail[email] = m.ID
				}
				if accountID, ok := emailToAccountID[email]; ok {
					if _, taken := r.byAccountID[accountID]; !taken {
						r.byAccountID[accountID] = m.ID
					}
				}
			}
		}
	}

	return r
}

// MemberForAccount returns the member owning an account id, if any.
func (r *Resolver) MemberForAccount(accountID string) (string, bool) {
	memberID, ok := r.byAccountID[accountID]
	return memberID, ok
}

// MemberForEmail returns the member linked to an account email, if any.
func (r *Resolver) MemberForEmail(email string) (string, bool) {
	memberID, ok := r.byEmail[strings.ToLower(email)]
	return memberID, ok
}

// Attribute returns a copy of events with AssignedTo filled in for events
// whose source account maps to a member. Events that already carry an
// assignment keep it untouched, which makes attribution idempotent and lets
// explicit assignments on local events win over inference.
func (r *Resolver) Attribute(events []calendar.Event) []calendar.Event {
	out := make([]calendar.Event, len(events))
	copy(out, events)

	for i := range out {
		if len(out[i].AssignedTo) > 0 {
			continue
		}

		accountID := out[i].AccountID
		if accountID == "" {
			// Events from a synthetic primary calendar still reveal their
			// account through the calendar id.
			accountID, _ = calendar.AccountFromCalendarID(out[i].CalendarID)
		}
		if accountID == "" {
			continue
		}

		if memberID, ok := r.byAccountID[accountID]; ok {
			out[i].AssignedTo = []string{memberID}
		}
	}

	return out
}
