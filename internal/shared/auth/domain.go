package auth

import (
	"slices"
	"strings"
)

// DomainAllowList admits operators whose e-mail domain is listed
type DomainAllowList struct {
	domains []string
}

func NewDomainAllowList(domains []string) *DomainAllowList {
	list := &DomainAllowList{}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "@")
		if d != "" && !slices.Contains(list.domains, d) {
			list.domains = append(list.domains, d)
		}
	}
	return list
}

// Allowed reports whether email belongs to an allowed domain. An empty list admits nobody.
func (l *DomainAllowList) Allowed(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return false
	}
	return slices.Contains(l.domains, strings.ToLower(strings.TrimSpace(email[at+1:])))
}

// Domains returns the normalized allow-list
func (l *DomainAllowList) Domains() []string {
	return slices.Clone(l.domains)
}
