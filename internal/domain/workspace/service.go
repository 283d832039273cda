package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"certlink/internal/domain/account"
	"certlink/internal/domain/certificate"
	"certlink/internal/domain/client"
)

// DefaultUploadTimeout bounds a registrar call when none is configured
const DefaultUploadTimeout = 30 * time.Second

// ClientDirectory resolves selectable clients
type ClientDirectory interface {
	GetClient(ctx context.Context, id string) (*client.Client, error)
}

// CertificateStore registers, lists and removes certificates
type CertificateStore interface {
	ListCertificates(ctx context.Context, clientID string) ([]*certificate.Certificate, error)
	Register(ctx context.Context, req certificate.UploadRequest) (*certificate.Certificate, error)
	DeleteCertificate(ctx context.Context, id string) ([]string, error)
}

// AccountStore lists and links accounts
type AccountStore interface {
	ListAccounts(ctx context.Context, clientID string) ([]*account.Account, error)
	LinkAccounts(ctx context.Context, params account.LinkParams) error
}

// Confirmer asks the operator a blocking yes/no question
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Options configures a Service
type Options struct {
	Policy        LinkPolicy
	UploadTimeout time.Duration
	Publisher     EventPublisher
}

// UploadResult is the outcome of a successful upload
type UploadResult struct {
	Certificate *certificate.Certificate `json:"certificate"`
	Linking     *LinkingView             `json:"linking,omitempty"`
}

type workspace struct {
	mu        sync.Mutex
	state     State
	uploading bool
}

// Service keeps one workspace per operator and persists every committed transition
type Service struct {
	clients   ClientDirectory
	certs     CertificateStore
	accounts  AccountStore
	publisher EventPublisher
	policy    LinkPolicy
	timeout   time.Duration

	mu         sync.RWMutex
	workspaces map[string]*workspace
}

// NewService creates a new workspace service
func NewService(clients ClientDirectory, certs CertificateStore, accounts AccountStore, opts Options) *Service {
	if opts.Policy == "" {
		opts.Policy = PolicyReplace
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = DefaultUploadTimeout
	}
	if opts.Publisher == nil {
		opts.Publisher = LogPublisher{}
	}
	return &Service{
		clients:    clients,
		certs:      certs,
		accounts:   accounts,
		publisher:  opts.Publisher,
		policy:     opts.Policy,
		timeout:    opts.UploadTimeout,
		workspaces: make(map[string]*workspace),
	}
}

// Policy returns the link policy applied on confirmation
func (s *Service) Policy() LinkPolicy {
	return s.policy
}

func (s *Service) workspace(operator string) *workspace {
	s.mu.RLock()
	ws, ok := s.workspaces[operator]
	s.mu.RUnlock()
	if ok {
		return ws
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok = s.workspaces[operator]; ok {
		return ws
	}
	ws = &workspace{state: State{Expanded: make(map[List]string)}}
	s.workspaces[operator] = ws
	return ws
}

// apply reduces ws.state with e. Callers hold ws.mu.
func (ws *workspace) apply(e Event) error {
	next, err := Reduce(ws.state, e)
	if err != nil {
		return err
	}
	ws.state = next
	return nil
}

func (ws *workspace) view() View {
	v := Render(ws.state)
	v.Uploading = ws.uploading
	return v
}

// View returns the operator's current workspace
func (s *Service) View(operator string) View {
	ws := s.workspace(operator)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.view()
}

// State returns a copy of the operator's state
func (s *Service) State(operator string) State {
	ws := s.workspace(operator)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.state.clone()
}

// SelectClient activates a client and loads its certificates and accounts.
// An empty clientID clears the workspace.
func (s *Service) SelectClient(ctx context.Context, operator, clientID string) (View, error) {
	ws := s.workspace(operator)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	event := ClientSelected{ClientID: clientID}
	if clientID != "" {
		if _, err := s.clients.GetClient(ctx, clientID); err != nil {
			return View{}, err
		}
		certs, accounts, err := s.load(ctx, clientID)
		if err != nil {
			return View{}, err
		}
		event.Certificates = certs
		event.Accounts = accounts
	}
	if err := ws.apply(event); err != nil {
		return View{}, err
	}

	log.Info().Str("operator", operator).Str("client_id", clientID).Msg("Client selected")
	return ws.view(), nil
}

func (s *Service) load(ctx context.Context, clientID string) ([]certificate.Certificate, []account.Account, error) {
	certs, err := s.loadCertificates(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}
	accounts, err := s.loadAccounts(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}
	return certs, accounts, nil
}

func (s *Service) loadCertificates(ctx context.Context, clientID string) ([]certificate.Certificate, error) {
	list, err := s.certs.ListCertificates(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificates: %w", err)
	}
	out := make([]certificate.Certificate, 0, len(list))
	for _, c := range list {
		out = append(out, *c)
	}
	return out, nil
}

func (s *Service) loadAccounts(ctx context.Context, clientID string) ([]account.Account, error) {
	list, err := s.accounts.ListAccounts(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	out := make([]account.Account, 0, len(list))
	for _, a := range list {
		out = append(out, *a)
	}
	return out, nil
}

// Refresh re-fetches one list of the selected client from storage
func (s *Service) Refresh(ctx context.Context, operator string, list List) (View, error) {
	ws := s.workspace(operator)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	clientID := ws.state.ClientID
	if clientID == "" {
		return View{}, ErrNoClientSelected
	}

	var event Event
	switch list {
	case ListCertificates:
		certs, err := s.loadCertificates(ctx, clientID)
		if err != nil {
			return View{}, err
		}
		event = CertificatesRefreshed{Certificates: certs}
	case ListAccounts:
		accounts, err := s.loadAccounts(ctx, clientID)
		if err != nil {
			return View{}, err
		}
		event = AccountsRefreshed{Accounts: accounts}
	default:
		return View{}, fmt.Errorf("%w: %s", ErrUnknownList, list)
	}
	if err := ws.apply(event); err != nil {
		return View{}, err
	}
	return ws.view(), nil
}

// Upload registers a certificate for the selected client and opens the linking
// workflow for it. Only one upload per workspace may be in flight; the workspace
// stays readable while the registrar is called.
func (s *Service) Upload(ctx context.Context, operator string, req certificate.UploadRequest) (*UploadResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ws := s.workspace(operator)
	ws.mu.Lock()
	if ws.uploading {
		ws.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	if ws.state.ClientID == "" {
		ws.mu.Unlock()
		return nil, ErrNoClientSelected
	}
	if req.ClientID != ws.state.ClientID {
		ws.mu.Unlock()
		return nil, ErrClientMismatch
	}
	ws.uploading = true
	ws.mu.Unlock()

	uploadCtx, cancel := context.WithTimeout(ctx, s.timeout)
	cert, err := s.certs.Register(uploadCtx, req)
	cancel()

	ws.mu.Lock()
	ws.uploading = false
	if err != nil {
		ws.mu.Unlock()
		log.Warn().Err(err).Str("operator", operator).Str("client_id", req.ClientID).Msg("Certificate upload failed")
		return nil, err
	}
	result := &UploadResult{Certificate: cert}
	// a client switch during registration leaves the certificate stored; it
	// shows up when its client is selected again
	if ws.state.ClientID == cert.ClientID {
		if err := ws.admit(*cert); err != nil {
			ws.mu.Unlock()
			return nil, err
		}
		result.Linking = ws.view().Linking
	}
	ws.mu.Unlock()

	log.Info().
		Str("operator", operator).
		Str("client_id", cert.ClientID).
		Str("certificate_id", cert.ID).
		Bool("linking", result.Linking != nil).
		Msg("Certificate registered")
	s.publish(ctx, operator, NewDomainEvent(EventCertificateRegistered, cert.ClientID, cert.ID))

	return result, nil
}

// admit adds a freshly registered certificate and opens linking for it. Callers hold ws.mu.
func (ws *workspace) admit(cert certificate.Certificate) error {
	if err := ws.apply(CertificateAdded{Certificate: cert}); err != nil {
		return err
	}
	return ws.apply(LinkingOpened{CertificateID: cert.ID})
}

// OpenLinking enters AwaitingSelection for an existing certificate
func (s *Service) OpenLinking(operator, certID string) (*LinkingView, error) {
	ws := s.workspace(operator)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.apply(LinkingOpened{CertificateID: certID}); err != nil {
		return nil, err
	}
	return ws.view().Linking, nil
}

// Linking returns the pending selection, if any
func (s *Service) Linking(operator string) (*LinkingView, error) {
	ws := s.workspace(operator)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.state.Linking == nil {
		return nil, ErrNotLinking
	}
	return ws.view().Linking, nil
}

// ToggleAccount flips one candidate of the pending selection
func (s *Service) ToggleAccount(operator, accountID string) (*LinkingView, error) {
	ws := s.workspace(operator)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.apply(AccountToggled{AccountID: accountID}); err != nil {
		return nil, err
	}
	return ws.view().Linking, nil
}

// ConfirmLinking persists the selection and returns the workspace to Idle.
// A nil accountIDs confirms the session's current selection. An empty
// selection is rejected and changes nothing.
func (s *Service) ConfirmLinking(ctx context.Context, operator string, accountIDs []string) (View, error) {
	ws := s.workspace(operator)
	ws.mu.Lock()
	view, event, err := s.confirm(ctx, operator, ws, accountIDs)
	ws.mu.Unlock()
	if err != nil {
		return View{}, err
	}

	s.publish(ctx, operator, event)
	return view, nil
}

// confirm persists the selection and commits the transition. Callers hold ws.mu.
// On a store error the linking session is left untouched.
func (s *Service) confirm(ctx context.Context, operator string, ws *workspace, accountIDs []string) (View, DomainEvent, error) {
	ids, err := ws.state.resolveSelection(accountIDs)
	if err != nil {
		return View{}, DomainEvent{}, err
	}
	target := ws.state.Linking.CertificateID

	params := account.LinkParams{
		CertificateID: target,
		AccountIDs:    ids,
		Replace:       s.policy == PolicyReplace,
	}
	if err := s.accounts.LinkAccounts(ctx, params); err != nil {
		return View{}, DomainEvent{}, fmt.Errorf("failed to link accounts: %w", err)
	}
	if err := ws.apply(LinkingConfirmed{AccountIDs: ids, Policy: s.policy}); err != nil {
		return View{}, DomainEvent{}, err
	}

	log.Info().
		Str("operator", operator).
		Str("certificate_id", target).
		Strs("account_ids", ids).
		Str("policy", string(s.policy)).
		Msg("Accounts linked")

	event := NewDomainEvent(EventAccountsLinked, ws.state.ClientID, target)
	event.AccountIDs = ids
	return ws.view(), event, nil
}

// CancelLinking discards the pending selection
func (s *Service) CancelLinking(operator string) View {
	ws := s.workspace(operator)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	_ = ws.apply(LinkingCancelled{})
	return ws.view()
}

// DeleteCertificate removes a certificate once the operator confirms. A declined
// confirmation is a silent no-op reported as deleted=false.
func (s *Service) DeleteCertificate(ctx context.Context, operator, certID string, confirmer Confirmer) (bool, error) {
	ws := s.workspace(operator)
	ws.mu.Lock()
	cert, ok := ws.state.Certificate(certID)
	ws.mu.Unlock()
	if !ok {
		return false, certificate.ErrCertificateNotFound
	}

	confirmed, err := confirmer.Confirm(ctx, fmt.Sprintf("Delete certificate %q (%s)?", cert.Name, cert.ID))
	if err != nil {
		return false, err
	}
	if !confirmed {
		return false, nil
	}

	ws.mu.Lock()
	released, err := s.certs.DeleteCertificate(ctx, certID)
	if err == nil {
		if err = ws.apply(CertificateDeleted{CertificateID: certID}); errors.Is(err, certificate.ErrCertificateNotFound) {
			err = nil
		}
	}
	ws.mu.Unlock()
	if err != nil {
		return false, err
	}

	log.Info().
		Str("operator", operator).
		Str("certificate_id", certID).
		Strs("released_accounts", released).
		Msg("Certificate deleted")

	event := NewDomainEvent(EventCertificateDeleted, cert.ClientID, certID)
	event.AccountIDs = released
	s.publish(ctx, operator, event)

	return true, nil
}

// ToggleExpanded expands or collapses one entry of a list
func (s *Service) ToggleExpanded(operator string, list List, id string) (View, error) {
	ws := s.workspace(operator)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.apply(ExpandToggled{List: list, ID: id}); err != nil {
		return View{}, err
	}
	return ws.view(), nil
}

// publish sends event to the broker. Callers must not hold ws.mu.
func (s *Service) publish(ctx context.Context, operator string, event DomainEvent) {
	event.Operator = operator
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Error().Err(err).Str("event_type", event.Type).Str("event_id", event.ID).Msg("Failed to publish event")
	}
}
