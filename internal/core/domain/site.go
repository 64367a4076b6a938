package domain

import (
	"time"
)

// SSLStatus tracks certificate provisioning for a custom domain at the
// hosting provider.
type SSLStatus string

const (
	SSLPending SSLStatus = "pending"
	SSLActive  SSLStatus = "active"
	SSLFailed  SSLStatus = "failed"
)

// VerificationStatus is the per-poll outcome of a custom domain check.
type VerificationStatus string

const (
	VerifyActive  VerificationStatus = "active"
	VerifyPending VerificationStatus = "pending"
	VerifyFailed  VerificationStatus = "failed"
)

// Domain binds a business to its hostname. The subdomain is authoritative
// and auto-verified on creation; a custom domain is attached and detached
// independently and requires DNS + SSL verification before it can serve.
type Domain struct {
	ID                string     `json:"id"`
	BusinessID        string     `json:"business_id"`
	Subdomain         string     `json:"subdomain"`
	CustomDomain      *string    `json:"custom_domain,omitempty"`
	IsVerified        bool       `json:"is_verified"`
	ProviderDomainID  *string    `json:"provider_domain_id,omitempty"`
	ApexName          *string    `json:"apex_name,omitempty"`
	SSLStatus         *SSLStatus `json:"ssl_status,omitempty"`
	SSLProvider       *string    `json:"ssl_provider,omitempty"`
	VerificationToken string     `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Theme holds the visual settings a site owner can customize.
type Theme struct {
	PrimaryColor string `json:"primary_color,omitempty"`
	AccentColor  string `json:"accent_color,omitempty"`
	FontFamily   string `json:"font_family,omitempty"`
}

// SiteContent is the full set of editable site fields. The draft copy is a
// superset of the published copy and is mutated freely; published fields are
// only ever overwritten at publish time.
type SiteContent struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Email       string            `json:"email,omitempty"`
	Address     string            `json:"address,omitempty"`
	Theme       Theme             `json:"theme"`
	Hours       map[string]string `json:"hours,omitempty"`
}

// Clone returns a deep copy, so draft and published snapshots never share
// the hours map.
func (c SiteContent) Clone() SiteContent {
	out := c
	if c.Hours != nil {
		out.Hours = make(map[string]string, len(c.Hours))
		for k, v := range c.Hours {
			out.Hours[k] = v
		}
	}
	return out
}

// Business carries the publishing-relevant state of a site: a draft snapshot,
// an optional published snapshot, and the publish flag gating what is live.
type Business struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"owner_id"`
	Draft       SiteContent  `json:"draft"`
	Published   *SiteContent `json:"published,omitempty"`
	IsPublished bool         `json:"is_published"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ThemePatch is a partial update of Theme. Nil fields are left untouched.
type ThemePatch struct {
	PrimaryColor *string `json:"primary_color,omitempty"`
	AccentColor  *string `json:"accent_color,omitempty"`
	FontFamily   *string `json:"font_family,omitempty"`
}

// ContentPatch is a typed partial update of SiteContent. Nil fields are left
// untouched; Hours entries merge key-by-key, an empty string value deletes
// the entry.
type ContentPatch struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Phone       *string           `json:"phone,omitempty"`
	Email       *string           `json:"email,omitempty"`
	Address     *string           `json:"address,omitempty"`
	Theme       *ThemePatch       `json:"theme,omitempty"`
	Hours       map[string]string `json:"hours,omitempty"`
}

// Apply merges the patch into content field-by-field.
func (p ContentPatch) Apply(c *SiteContent) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.Theme != nil {
		if p.Theme.PrimaryColor != nil {
			c.Theme.PrimaryColor = *p.Theme.PrimaryColor
		}
		if p.Theme.AccentColor != nil {
			c.Theme.AccentColor = *p.Theme.AccentColor
		}
		if p.Theme.FontFamily != nil {
			c.Theme.FontFamily = *p.Theme.FontFamily
		}
	}
	if len(p.Hours) > 0 {
		if c.Hours == nil {
			c.Hours = make(map[string]string, len(p.Hours))
		}
		for day, hours := range p.Hours {
			if hours == "" {
				delete(c.Hours, day)
				continue
			}
			c.Hours[day] = hours
		}
	}
}

// Empty reports whether the patch would change nothing.
func (p ContentPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Phone == nil &&
		p.Email == nil && p.Address == nil && p.Theme == nil && len(p.Hours) == 0
}

// DNSRecord is one record the user must publish to prove control of a
// custom domain.
type DNSRecord struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
	TTL   int    `json:"ttl"`
}

// DNSInstructions is the user-facing payload describing exactly which
// records to create: one CNAME to the provider edge and one TXT ownership
// token. It is produced for humans, not machine-consumed.
type DNSInstructions struct {
	Domain  string      `json:"domain"`
	Records []DNSRecord `json:"dns_records"`
	HowTo   string      `json:"how_to"`
}

// PublishEligibility is the answer to "can this business go live right now".
type PublishEligibility struct {
	CanPublish           bool   `json:"can_publish"`
	RequiresVerification bool   `json:"requires_verification"`
	Reason               string `json:"reason,omitempty"`
}
