package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	domainAutoReply "github.com/mahalbangetid-beep/scb-sub003/domains/autoreply"
	domainDevice "github.com/mahalbangetid-beep/scb-sub003/domains/device"
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/validations"
	"github.com/sirupsen/logrus"
)

type serviceAutoReply struct {
	repo    domainAutoReply.IRuleRepository
	devices domainDevice.IDeviceRepository
	// compiled regex per rule id and keyword
	patterns sync.Map
}

func NewAutoReplyService(repo domainAutoReply.IRuleRepository, devices domainDevice.IDeviceRepository) domainAutoReply.IAutoReplyUsecase {
	return &serviceAutoReply{repo: repo, devices: devices}
}

func (s *serviceAutoReply) validate(ctx context.Context, userID string, req domainAutoReply.RuleRequest) error {
	if err := validations.ValidateRule(ctx, req); err != nil {
		return err
	}
	if req.MatchType == domainAutoReply.MatchRegex {
		if _, err := compileRule(req.Keyword, req.CaseSensitive); err != nil {
			return pkgError.ValidationError("keyword: invalid regular expression")
		}
	}
	if req.DeviceID != "" {
		if _, err := s.devices.GetForUser(ctx, userID, req.DeviceID); err != nil {
			if errors.Is(err, domainDevice.ErrDeviceNotFound) {
				return pkgError.ValidationError("device_id: device not found")
			}
			return err
		}
	}
	return nil
}

func (s *serviceAutoReply) Create(ctx context.Context, userID string, req domainAutoReply.RuleRequest) (domainAutoReply.Rule, error) {
	if err := s.validate(ctx, userID, req); err != nil {
		return domainAutoReply.Rule{}, err
	}
	r := &domainAutoReply.Rule{
		UserID:        userID,
		DeviceID:      req.DeviceID,
		Keyword:       req.Keyword,
		MatchType:     req.MatchType,
		Response:      req.Response,
		Priority:      req.Priority,
		CaseSensitive: req.CaseSensitive,
		IsActive:      req.IsActive == nil || *req.IsActive,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return domainAutoReply.Rule{}, err
	}
	return *r, nil
}

func (s *serviceAutoReply) List(ctx context.Context, userID, deviceID string, page utils.PageRequest) ([]domainAutoReply.Rule, int64, error) {
	return s.repo.List(ctx, userID, deviceID, page)
}

func (s *serviceAutoReply) Get(ctx context.Context, userID, id string) (domainAutoReply.Rule, error) {
	r, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return domainAutoReply.Rule{}, err
	}
	return *r, nil
}

func (s *serviceAutoReply) Update(ctx context.Context, userID, id string, req domainAutoReply.RuleRequest) (domainAutoReply.Rule, error) {
	r, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return domainAutoReply.Rule{}, err
	}
	if err := s.validate(ctx, userID, req); err != nil {
		return domainAutoReply.Rule{}, err
	}
	r.DeviceID = req.DeviceID
	r.Keyword = req.Keyword
	r.MatchType = req.MatchType
	r.Response = req.Response
	r.Priority = req.Priority
	r.CaseSensitive = req.CaseSensitive
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return domainAutoReply.Rule{}, err
	}
	s.patterns.Delete(id)
	return *r, nil
}

func (s *serviceAutoReply) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.repo.GetForUser(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.patterns.Delete(id)
	return nil
}

// Match returns the first active rule, by priority, matching text. A nil rule
// with nil error means nothing matched.
func (s *serviceAutoReply) Match(ctx context.Context, userID, deviceID, text string) (*domainAutoReply.Rule, error) {
	rules, err := s.repo.ActiveForDevice(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		r := rules[i]
		if !s.matches(r, text) {
			continue
		}
		if err := s.repo.IncrementTrigger(ctx, r.ID); err != nil {
			logrus.WithError(err).Warnf("[AUTOREPLY] Failed to count trigger of rule %s", r.ID)
		}
		return &r, nil
	}
	return nil, nil
}

type cachedPattern struct {
	source string
	re     *regexp.Regexp
}

func (s *serviceAutoReply) matches(r domainAutoReply.Rule, text string) bool {
	text = strings.TrimSpace(text)
	if r.MatchType == domainAutoReply.MatchRegex {
		re := s.pattern(r)
		return re != nil && re.MatchString(text)
	}

	keyword := r.Keyword
	if !r.CaseSensitive {
		keyword = strings.ToLower(keyword)
		text = strings.ToLower(text)
	}
	switch r.MatchType {
	case domainAutoReply.MatchExact:
		return text == keyword
	case domainAutoReply.MatchStartsWith:
		return strings.HasPrefix(text, keyword)
	default:
		return strings.Contains(text, keyword)
	}
}

func (s *serviceAutoReply) pattern(r domainAutoReply.Rule) *regexp.Regexp {
	source := r.Keyword
	if !r.CaseSensitive {
		source = "(?i)" + source
	}
	if v, ok := s.patterns.Load(r.ID); ok {
		if cp := v.(cachedPattern); cp.source == source {
			return cp.re
		}
	}
	re, err := compileRule(r.Keyword, r.CaseSensitive)
	if err != nil {
		logrus.WithError(err).Warnf("[AUTOREPLY] Rule %s has an invalid pattern", r.ID)
		return nil
	}
	s.patterns.Store(r.ID, cachedPattern{source: source, re: re})
	return re
}

func compileRule(keyword string, caseSensitive bool) (*regexp.Regexp, error) {
	if !caseSensitive {
		keyword = "(?i)" + keyword
	}
	return regexp.Compile(keyword)
}
