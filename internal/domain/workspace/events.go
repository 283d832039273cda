package workspace

import (
	"fmt"
	"slices"

	"certlink/internal/domain/account"
	"certlink/internal/domain/certificate"
)

// Event is a transition of the workspace state machine
type Event interface {
	apply(s State) (State, error)
}

// Reduce applies e to s and returns the next state. On error the returned
// state is s itself and nothing has changed.
func Reduce(s State, e Event) (State, error) {
	next, err := e.apply(s.clone())
	if err != nil {
		return s, err
	}
	return next, nil
}

// ClientSelected activates a client with its freshly loaded data.
// An empty ClientID clears the selection.
type ClientSelected struct {
	ClientID     string
	Certificates []certificate.Certificate
	Accounts     []account.Account
}

func (e ClientSelected) apply(s State) (State, error) {
	next := State{
		ClientID: e.ClientID,
		Expanded: make(map[List]string),
	}
	if e.ClientID != "" {
		next.Certificates = slices.Clone(e.Certificates)
		next.Accounts = slices.Clone(e.Accounts)
	}
	return next, nil
}

// CertificatesRefreshed replaces the certificate list after a re-fetch
type CertificatesRefreshed struct {
	Certificates []certificate.Certificate
}

func (e CertificatesRefreshed) apply(s State) (State, error) {
	if s.ClientID == "" {
		return s, ErrNoClientSelected
	}
	s.Certificates = slices.Clone(e.Certificates)
	if id, ok := s.Expanded[ListCertificates]; ok {
		if _, found := s.Certificate(id); !found {
			delete(s.Expanded, ListCertificates)
		}
	}
	return reopenLinking(s), nil
}

// AccountsRefreshed replaces the account list after a re-fetch
type AccountsRefreshed struct {
	Accounts []account.Account
}

func (e AccountsRefreshed) apply(s State) (State, error) {
	if s.ClientID == "" {
		return s, ErrNoClientSelected
	}
	s.Accounts = slices.Clone(e.Accounts)
	if id, ok := s.Expanded[ListAccounts]; ok {
		if _, found := s.Account(id); !found {
			delete(s.Expanded, ListAccounts)
		}
	}
	return reopenLinking(s), nil
}

// reopenLinking recomputes a pending session's candidates against refreshed data,
// keeping the operator's toggles. The session is dropped when its target vanished.
func reopenLinking(s State) State {
	if s.Linking == nil {
		return s
	}
	if _, ok := s.Certificate(s.Linking.CertificateID); !ok {
		s.Linking = nil
		return s
	}
	s.Linking = newLinkSession(s, s.Linking.CertificateID, s.Linking)
	return s
}

// CertificateAdded appends a newly registered certificate
type CertificateAdded struct {
	Certificate certificate.Certificate
}

func (e CertificateAdded) apply(s State) (State, error) {
	if s.ClientID == "" {
		return s, ErrNoClientSelected
	}
	if e.Certificate.ClientID != s.ClientID {
		return s, ErrClientMismatch
	}
	if _, exists := s.Certificate(e.Certificate.ID); exists {
		return s, fmt.Errorf("%w: %s", ErrDuplicateID, e.Certificate.ID)
	}
	s.Certificates = append(s.Certificates, e.Certificate)
	return s, nil
}

// CertificateDeleted removes a certificate and releases its accounts
type CertificateDeleted struct {
	CertificateID string
}

func (e CertificateDeleted) apply(s State) (State, error) {
	if _, ok := s.Certificate(e.CertificateID); !ok {
		return s, certificate.ErrCertificateNotFound
	}
	s.Certificates = slices.DeleteFunc(s.Certificates, func(c certificate.Certificate) bool {
		return c.ID == e.CertificateID
	})
	for i := range s.Accounts {
		if s.Accounts[i].CertificateID == e.CertificateID {
			s.Accounts[i].CertificateID = ""
		}
	}
	if s.Expanded[ListCertificates] == e.CertificateID {
		delete(s.Expanded, ListCertificates)
	}
	if s.Linking != nil {
		if s.Linking.CertificateID == e.CertificateID {
			s.Linking = nil
		} else {
			// released accounts become eligible for the pending target
			s.Linking = newLinkSession(s, s.Linking.CertificateID, s.Linking)
		}
	}
	return s, nil
}

// LinkingOpened enters AwaitingSelection for a certificate with every candidate selected
type LinkingOpened struct {
	CertificateID string
}

func (e LinkingOpened) apply(s State) (State, error) {
	if s.ClientID == "" {
		return s, ErrNoClientSelected
	}
	if _, ok := s.Certificate(e.CertificateID); !ok {
		return s, certificate.ErrCertificateNotFound
	}
	s.Linking = newLinkSession(s, e.CertificateID, nil)
	return s, nil
}

// AccountToggled flips one candidate in the pending selection
type AccountToggled struct {
	AccountID string
}

func (e AccountToggled) apply(s State) (State, error) {
	if s.Linking == nil {
		return s, ErrNotLinking
	}
	if !s.Linking.isCandidate(e.AccountID) {
		return s, fmt.Errorf("%w: %s", ErrNotCandidate, e.AccountID)
	}
	s.Linking.Selected[e.AccountID] = !s.Linking.Selected[e.AccountID]
	return s, nil
}

// LinkingConfirmed binds the selected accounts to the pending certificate and returns to Idle.
// A nil AccountIDs uses the session's current selection.
type LinkingConfirmed struct {
	AccountIDs []string
	Policy     LinkPolicy
}

func (e LinkingConfirmed) apply(s State) (State, error) {
	ids, err := s.resolveSelection(e.AccountIDs)
	if err != nil {
		return s, err
	}
	target := s.Linking.CertificateID
	chosen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		chosen[id] = struct{}{}
	}
	for i := range s.Accounts {
		a := &s.Accounts[i]
		if _, ok := chosen[a.ID]; ok {
			a.CertificateID = target
			continue
		}
		if e.Policy != PolicyMerge && a.CertificateID == target {
			a.CertificateID = ""
		}
	}
	s.Linking = nil
	return s, nil
}

// LinkingCancelled discards the pending selection
type LinkingCancelled struct{}

func (LinkingCancelled) apply(s State) (State, error) {
	s.Linking = nil
	return s, nil
}

// ExpandToggled expands an entry of a list, collapsing it when it is already open.
// At most one entry per list is expanded.
type ExpandToggled struct {
	List List
	ID   string
}

func (e ExpandToggled) apply(s State) (State, error) {
	if e.List != ListCertificates && e.List != ListAccounts {
		return s, fmt.Errorf("%w: %s", ErrUnknownList, e.List)
	}
	if e.ID == "" || s.Expanded[e.List] == e.ID {
		delete(s.Expanded, e.List)
		return s, nil
	}
	s.Expanded[e.List] = e.ID
	return s, nil
}
