package workspace

import (
	"errors"
	"fmt"
	"slices"

	"certlink/internal/domain/account"
	"certlink/internal/domain/certificate"
)

// List names a collection shown to the operator
type List string

const (
	ListCertificates List = "certificates"
	ListAccounts     List = "accounts"
)

// Workflow errors
var (
	ErrNoClientSelected = errors.New("no client selected")
	ErrClientMismatch   = errors.New("request does not belong to the selected client")
	ErrNotLinking       = errors.New("no account linking in progress")
	ErrNotCandidate     = errors.New("account cannot be linked to this certificate")
	ErrEmptySelection   = errors.New("at least one account must be selected")
	ErrUnknownList      = errors.New("unknown list")
	ErrUploadInProgress = errors.New("an upload is already in progress")
	ErrDuplicateID      = errors.New("certificate already present")
)

// LinkPolicy decides what happens to accounts that were bound to the target
// certificate but are left out of a confirmed selection.
type LinkPolicy string

const (
	// PolicyReplace unlinks deselected accounts so the certificate ends up bound to exactly the selection.
	PolicyReplace LinkPolicy = "replace"
	// PolicyMerge only adds links and leaves deselected accounts bound.
	PolicyMerge LinkPolicy = "merge"
)

// ParseLinkPolicy converts a configuration value into a LinkPolicy
func ParseLinkPolicy(s string) (LinkPolicy, error) {
	switch LinkPolicy(s) {
	case PolicyReplace, PolicyMerge:
		return LinkPolicy(s), nil
	case "":
		return PolicyReplace, nil
	default:
		return "", fmt.Errorf("invalid link policy %q (want replace or merge)", s)
	}
}

// LinkSession is the AwaitingSelection state of the linking workflow.
type LinkSession struct {
	CertificateID string
	// Candidates holds eligible account IDs in workspace order.
	Candidates []string
	Selected   map[string]bool
}

// SelectedIDs returns the selected candidates in candidate order
func (ls *LinkSession) SelectedIDs() []string {
	ids := make([]string, 0, len(ls.Selected))
	for _, id := range ls.Candidates {
		if ls.Selected[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func (ls *LinkSession) isCandidate(id string) bool {
	return slices.Contains(ls.Candidates, id)
}

func (ls *LinkSession) clone() *LinkSession {
	if ls == nil {
		return nil
	}
	selected := make(map[string]bool, len(ls.Selected))
	for k, v := range ls.Selected {
		selected[k] = v
	}
	return &LinkSession{
		CertificateID: ls.CertificateID,
		Candidates:    slices.Clone(ls.Candidates),
		Selected:      selected,
	}
}

// State is everything an operator's screen holds for the selected client.
// It is treated as a value: Reduce never mutates its input.
type State struct {
	ClientID     string
	Certificates []certificate.Certificate
	Accounts     []account.Account
	// Linking is nil while the workflow is Idle.
	Linking  *LinkSession
	Expanded map[List]string
}

func (s State) clone() State {
	expanded := make(map[List]string, len(s.Expanded))
	for k, v := range s.Expanded {
		expanded[k] = v
	}
	return State{
		ClientID:     s.ClientID,
		Certificates: slices.Clone(s.Certificates),
		Accounts:     slices.Clone(s.Accounts),
		Linking:      s.Linking.clone(),
		Expanded:     expanded,
	}
}

// Certificate looks up a certificate of the workspace
func (s State) Certificate(id string) (certificate.Certificate, bool) {
	for _, c := range s.Certificates {
		if c.ID == id {
			return c, true
		}
	}
	return certificate.Certificate{}, false
}

// Account looks up an account of the workspace
func (s State) Account(id string) (account.Account, bool) {
	for _, a := range s.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return account.Account{}, false
}

// LinkedAccounts derives the accounts bound to a certificate from Account.CertificateID.
func (s State) LinkedAccounts(certID string) []account.Account {
	linked := make([]account.Account, 0)
	for _, a := range s.Accounts {
		if a.CertificateID == certID {
			linked = append(linked, a)
		}
	}
	return linked
}

// Candidates returns the accounts that may be linked to certID: unlinked ones
// and ones already bound to certID. Accounts of other certificates never appear.
func (s State) Candidates(certID string) []account.Account {
	out := make([]account.Account, 0, len(s.Accounts))
	for _, a := range s.Accounts {
		if a.EligibleFor(certID) {
			out = append(out, a)
		}
	}
	return out
}

// VisibleCertificates is empty until a client is selected
func (s State) VisibleCertificates() []certificate.Certificate {
	if s.ClientID == "" {
		return []certificate.Certificate{}
	}
	return slices.Clone(s.Certificates)
}

// VisibleAccounts lists unlinked accounts and accounts whose certificate is present.
func (s State) VisibleAccounts() []account.Account {
	out := make([]account.Account, 0, len(s.Accounts))
	if s.ClientID == "" {
		return out
	}
	for _, a := range s.Accounts {
		if !a.IsLinked() {
			out = append(out, a)
			continue
		}
		if _, ok := s.Certificate(a.CertificateID); ok {
			out = append(out, a)
		}
	}
	return out
}

// Validate checks the referential invariants of the state
func (s State) Validate() error {
	for _, a := range s.Accounts {
		if a.IsLinked() {
			if _, ok := s.Certificate(a.CertificateID); !ok {
				return fmt.Errorf("account %s references missing certificate %s", a.ID, a.CertificateID)
			}
		}
	}
	if s.Linking != nil {
		if _, ok := s.Certificate(s.Linking.CertificateID); !ok {
			return fmt.Errorf("linking target %s does not exist", s.Linking.CertificateID)
		}
		for _, id := range s.Linking.Candidates {
			a, ok := s.Account(id)
			if !ok || !a.EligibleFor(s.Linking.CertificateID) {
				return fmt.Errorf("account %s is not a valid candidate", id)
			}
		}
	}
	for list, id := range s.Expanded {
		if list != ListCertificates && list != ListAccounts {
			return fmt.Errorf("%w: %s", ErrUnknownList, list)
		}
		if id == "" {
			return fmt.Errorf("empty expanded id for %s", list)
		}
	}
	return nil
}

// resolveSelection returns the account IDs a confirmation would bind. A nil ids
// slice means "use the session's current selection".
func (s State) resolveSelection(ids []string) ([]string, error) {
	if s.Linking == nil {
		return nil, ErrNotLinking
	}
	if ids == nil {
		ids = s.Linking.SelectedIDs()
	}
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !s.Linking.isCandidate(id) {
			return nil, fmt.Errorf("%w: %s", ErrNotCandidate, id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func newLinkSession(s State, certID string, previous *LinkSession) *LinkSession {
	ls := &LinkSession{
		CertificateID: certID,
		Selected:      make(map[string]bool),
	}
	for _, a := range s.Candidates(certID) {
		ls.Candidates = append(ls.Candidates, a.ID)
		selected := true
		if previous != nil && previous.isCandidate(a.ID) {
			selected = previous.Selected[a.ID]
		}
		ls.Selected[a.ID] = selected
	}
	return ls
}
