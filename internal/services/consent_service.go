package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"glucoach/internal/models/db_models"
	"glucoach/internal/repositories"
	"glucoach/pkg/utils"
)

// ConsentInput is what a client asserts when accepting the disclaimer.
type ConsentInput struct {
	Version       string
	Source        db_models.ConsentSource
	IsDemo        bool
	ConsentUIHash string
	Country       string
	Locale        string
	UserAgent     string
}

type ConsentServiceInterface interface {
	Record(ctx context.Context, principal utils.Principal, input ConsentInput) (*db_models.DisclaimerAcceptance, error)
	// HasActiveConsent reports whether a valid acceptance exists at or above
	// minVersion, and returns the newest such acceptance.
	HasActiveConsent(ctx context.Context, principal utils.Principal, minVersion string) (bool, *db_models.DisclaimerAcceptance, error)
	Verify(acceptance *db_models.DisclaimerAcceptance) bool
}

type ConsentService struct {
	consentRepo repositories.ConsentRepository
	secret      []byte
	clock       utils.Clock
}

func NewConsentService(consentRepo repositories.ConsentRepository, secret string, clock utils.Clock) ConsentServiceInterface {
	return &ConsentService{
		consentRepo: consentRepo,
		secret:      []byte(secret),
		clock:       clock,
	}
}

func (c *ConsentService) Record(ctx context.Context, principal utils.Principal, input ConsentInput) (*db_models.DisclaimerAcceptance, error) {
	version := strings.TrimSpace(input.Version)
	if version == "" {
		return nil, utils.NewBadRequest("version is required")
	}
	if _, err := db_models.ParseConsentSource(string(input.Source)); err != nil {
		return nil, utils.NewBadRequest("%v", err)
	}

	acceptance := &db_models.DisclaimerAcceptance{
		ID:                utils.NewKSUID(),
		TenantID:          principal.TenantID,
		UserID:            principal.UserID,
		DisclaimerVersion: version,
		ConsentSource:     input.Source,
		IsDemo:            input.IsDemo,
		ConsentedAt:       c.clock.Now().Truncate(time.Second),
		ConsentUIHash:     input.ConsentUIHash,
		Country:           input.Country,
		Locale:            input.Locale,
		UserAgent:         input.UserAgent,
	}
	acceptance.Signature = utils.SignHMAC(c.secret, CanonicalConsentBytes(acceptance))

	if err := c.consentRepo.Insert(ctx, acceptance); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return acceptance, nil
}

func (c *ConsentService) HasActiveConsent(ctx context.Context, principal utils.Principal, minVersion string) (bool, *db_models.DisclaimerAcceptance, error) {
	acceptances, err := c.consentRepo.ListByUser(ctx, principal.TenantID, principal.UserID)
	if err != nil {
		return false, nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	// newest first
	for i := range acceptances {
		a := &acceptances[i]
		if CompareVersions(a.DisclaimerVersion, minVersion) < 0 {
			continue
		}
		if !c.Verify(a) {
			continue
		}
		return true, a, nil
	}
	return false, nil, nil
}

func (c *ConsentService) Verify(acceptance *db_models.DisclaimerAcceptance) bool {
	if acceptance == nil {
		return false
	}
	return utils.VerifyHMAC(c.secret, CanonicalConsentBytes(acceptance), acceptance.Signature)
}

// CanonicalConsentBytes renders the signed fields as name=value pairs sorted
// by name and separated by 0x1F. Absent values are empty strings.
func CanonicalConsentBytes(a *db_models.DisclaimerAcceptance) []byte {
	fields := map[string]string{
		"consent_source":     string(a.ConsentSource),
		"consent_ui_hash":    a.ConsentUIHash,
		"consented_at_utc":   utils.FormatRFC3339UTC(a.ConsentedAt),
		"country":            a.Country,
		"disclaimer_version": a.DisclaimerVersion,
		"is_demo":            strconv.FormatBool(a.IsDemo),
		"locale":             a.Locale,
		"user_agent":         a.UserAgent,
		"user_id":            a.UserID.String(),
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+fields[name])
	}
	return []byte(strings.Join(pairs, "\x1f"))
}

// CompareVersions compares dotted versions segment by segment, numerically
// where both segments are numbers. A leading "v" is ignored and missing
// segments count as zero.
func CompareVersions(a, b string) int {
	as := strings.Split(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(a)), "v"), ".")
	bs := strings.Split(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(b)), "v"), ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		x, y := "0", "0"
		if i < len(as) && as[i] != "" {
			x = as[i]
		}
		if i < len(bs) && bs[i] != "" {
			y = bs[i]
		}
		xi, errX := strconv.Atoi(x)
		yi, errY := strconv.Atoi(y)
		switch {
		case errX == nil && errY == nil:
			if xi != yi {
				if xi < yi {
					return -1
				}
				return 1
			}
		case x != y:
			return strings.Compare(x, y)
		}
	}
	return 0
}
