package workspace

import (
	"certlink/internal/domain/account"
	"certlink/internal/domain/certificate"
)

// CertificateView is a certificate with the accounts bound to it
type CertificateView struct {
	certificate.Certificate
	LinkedAccounts []account.Account `json:"linkedAccounts"`
	Expanded       bool              `json:"expanded"`
}

// AccountView is an account as listed on the accounts screen
type AccountView struct {
	account.Account
	Expanded bool `json:"expanded"`
}

// LinkingView is the pending selection of an AwaitingSelection workspace
type LinkingView struct {
	CertificateID string            `json:"certificateId"`
	Candidates    []account.Account `json:"candidates"`
	SelectedIDs   []string          `json:"selectedIds"`
	CanConfirm    bool              `json:"canConfirm"`
}

// View is the read model rendered for an operator
type View struct {
	ClientID     string            `json:"clientId,omitempty"`
	Certificates []CertificateView `json:"certificates"`
	Accounts     []AccountView     `json:"accounts"`
	Linking      *LinkingView      `json:"linking,omitempty"`
	Uploading    bool              `json:"uploading"`
}

// Render builds the operator's view of s
func Render(s State) View {
	v := View{
		ClientID:     s.ClientID,
		Certificates: make([]CertificateView, 0, len(s.Certificates)),
		Accounts:     make([]AccountView, 0, len(s.Accounts)),
	}
	for _, c := range s.VisibleCertificates() {
		v.Certificates = append(v.Certificates, CertificateView{
			Certificate:    c,
			LinkedAccounts: s.LinkedAccounts(c.ID),
			Expanded:       s.Expanded[ListCertificates] == c.ID,
		})
	}
	for _, a := range s.VisibleAccounts() {
		v.Accounts = append(v.Accounts, AccountView{
			Account:  a,
			Expanded: s.Expanded[ListAccounts] == a.ID,
		})
	}
	if s.Linking != nil {
		lv := &LinkingView{
			CertificateID: s.Linking.CertificateID,
			Candidates:    make([]account.Account, 0, len(s.Linking.Candidates)),
			SelectedIDs:   s.Linking.SelectedIDs(),
		}
		for _, id := range s.Linking.Candidates {
			if a, ok := s.Account(id); ok {
				lv.Candidates = append(lv.Candidates, a)
			}
		}
		lv.CanConfirm = len(lv.SelectedIDs) > 0
		v.Linking = lv
	}
	return v
}
