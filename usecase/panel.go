package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	domainHealth "github.com/mahalbangetid-beep/scb-sub003/domains/health"
	domainPanel "github.com/mahalbangetid-beep/scb-sub003/domains/panel"
	domainSubscription "github.com/mahalbangetid-beep/scb-sub003/domains/subscription"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/crypto"
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/utils"
	"github.com/mahalbangetid-beep/scb-sub003/validations"
	"github.com/sirupsen/logrus"
)

const panelCallTimeout = 30 * time.Second

type servicePanel struct {
	repo      domainPanel.IPanelRepository
	newClient domainPanel.ClientFactory
	cipher    *crypto.Cipher
	hook      domainSubscription.IResourceHook
	health    domainHealth.IHealthUsecase
	now       func() time.Time
}

func NewPanelService(
	repo domainPanel.IPanelRepository,
	newClient domainPanel.ClientFactory,
	cipher *crypto.Cipher,
	hook domainSubscription.IResourceHook,
	health domainHealth.IHealthUsecase,
) domainPanel.IPanelUsecase {
	return &servicePanel{
		repo:      repo,
		newClient: newClient,
		cipher:    cipher,
		hook:      hook,
		health:    health,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *servicePanel) Create(ctx context.Context, userID string, req domainPanel.CreatePanelRequest) (domainPanel.Panel, error) {
	if err := validations.ValidateCreatePanel(ctx, req); err != nil {
		return domainPanel.Panel{}, err
	}
	url := strings.TrimSpace(req.URL)
	apiKey := strings.TrimSpace(req.APIKey)

	callCtx, cancel := context.WithTimeout(ctx, panelCallTimeout)
	balance, err := s.newClient(url, apiKey).Balance(callCtx)
	cancel()
	if err != nil {
		return domainPanel.Panel{}, pkgError.WrapAppError(err, "panel rejected the credentials: "+err.Error(), http.StatusUnprocessableEntity).WithCode("PANEL_UNREACHABLE")
	}

	encrypted, err := s.cipher.Encrypt(apiKey)
	if err != nil {
		return domainPanel.Panel{}, pkgError.WrapAppError(err, "failed to store panel credentials", http.StatusInternalServerError)
	}

	charge, err := s.hook.Reserve(ctx, userID, domainSubscription.ResourcePanel)
	if err != nil {
		return domainPanel.Panel{}, err
	}

	checked := s.now()
	p := &domainPanel.Panel{
		UserID:        userID,
		Name:          strings.TrimSpace(req.Name),
		URL:           url,
		APIKey:        encrypted,
		Status:        domainPanel.StatusActive,
		Balance:       balance.Balance,
		Currency:      balance.Currency,
		LastCheckedAt: &checked,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		_ = s.hook.Release(ctx, charge)
		return domainPanel.Panel{}, err
	}
	if err := s.hook.Bind(ctx, charge, p.ID); err != nil {
		if delErr := s.repo.Delete(ctx, p.ID); delErr != nil {
			logrus.WithError(delErr).Errorf("[PANEL] Failed to roll back panel %s", p.ID)
		}
		_ = s.hook.Release(ctx, charge)
		return domainPanel.Panel{}, err
	}
	if s.health != nil {
		s.health.ReportSuccess(ctx, domainHealth.EntityPanel, p.ID)
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "panel_id": p.ID, "free": charge.Free}).Info("[PANEL] Panel added")
	return *p, nil
}

func (s *servicePanel) List(ctx context.Context, userID string, page utils.PageRequest) ([]domainPanel.Panel, int64, error) {
	return s.repo.List(ctx, userID, page)
}

func (s *servicePanel) Get(ctx context.Context, userID, id string) (domainPanel.Panel, error) {
	p, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return domainPanel.Panel{}, err
	}
	return *p, nil
}

func (s *servicePanel) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.repo.GetForUser(ctx, userID, id); err != nil {
		return err
	}
	if err := s.hook.Cancel(ctx, domainSubscription.ResourcePanel, id); err != nil {
		logrus.WithError(err).Warnf("[PANEL] Failed to cancel subscription of panel %s", id)
	}
	return s.repo.Delete(ctx, id)
}

func (s *servicePanel) Check(ctx context.Context, userID, id string) (domainPanel.Panel, error) {
	p, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return domainPanel.Panel{}, err
	}
	s.refresh(ctx, p)
	return *p, nil
}

// Services lists the catalogue of a panel owned by userID.
func (s *servicePanel) Services(ctx context.Context, userID, id string) ([]domainPanel.Service, error) {
	p, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	client, err := s.clientFor(p)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, panelCallTimeout)
	defer cancel()
	services, err := client.Services(callCtx)
	if err != nil {
		return nil, pkgError.WrapAppError(err, "panel request failed", http.StatusBadGateway).WithCode("PANEL_ERROR")
	}
	return services, nil
}

// refresh calls the balance action and stores the outcome on the panel row.
func (s *servicePanel) refresh(ctx context.Context, p *domainPanel.Panel) error {
	client, err := s.clientFor(p)
	if err == nil {
		callCtx, cancel := context.WithTimeout(ctx, panelCallTimeout)
		var balance domainPanel.Balance
		balance, err = client.Balance(callCtx)
		cancel()
		if err == nil {
			p.Balance = balance.Balance
			p.Currency = balance.Currency
		}
	}

	checked := s.now()
	p.LastCheckedAt = &checked
	if err != nil {
		p.Status = domainPanel.StatusError
		p.LastError = err.Error()
	} else {
		p.Status = domainPanel.StatusActive
		p.LastError = ""
	}
	if updErr := s.repo.Update(ctx, p); updErr != nil {
		logrus.WithError(updErr).Warnf("[PANEL] Failed to store check result of panel %s", p.ID)
	}
	s.report(ctx, p.ID, err)
	return err
}

// Probe implements the panel half of the health checker.
func (s *servicePanel) Probe(ctx context.Context, id string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.refresh(ctx, p)
}

func (s *servicePanel) report(ctx context.Context, id string, err error) {
	if s.health == nil {
		return
	}
	if err != nil {
		s.health.ReportFailure(ctx, domainHealth.EntityPanel, id, err.Error())
		return
	}
	s.health.ReportSuccess(ctx, domainHealth.EntityPanel, id)
}

func (s *servicePanel) clientFor(p *domainPanel.Panel) (domainPanel.IPanelClient, error) {
	key, err := s.cipher.Decrypt(p.APIKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt api key of panel %s: %w", p.ID, err)
	}
	return s.newClient(p.URL, key), nil
}

// Execute runs a customer command against the panel and renders one result
// line per order.
func (s *servicePanel) Execute(ctx context.Context, panelID string, cmd domainPanel.Command) ([]domainPanel.CommandResult, error) {
	p, err := s.repo.GetByID(ctx, panelID)
	if err != nil {
		return nil, err
	}
	client, err := s.clientFor(p)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, panelCallTimeout)
	defer cancel()

	var results []domainPanel.CommandResult
	switch cmd.Action {
	case domainPanel.ActionStatus:
		statuses, callErr := client.OrderStatus(callCtx, cmd.OrderIDs)
		err = callErr
		for _, st := range statuses {
			results = append(results, statusLine(st))
		}
	case domainPanel.ActionRefill, domainPanel.ActionCancel:
		var actions []domainPanel.ActionResult
		if cmd.Action == domainPanel.ActionRefill {
			actions, err = client.Refill(callCtx, cmd.OrderIDs)
		} else {
			actions, err = client.Cancel(callCtx, cmd.OrderIDs)
		}
		for _, a := range actions {
			results = append(results, actionLine(cmd.Action, a))
		}
	default:
		return nil, pkgError.ValidationError("unsupported panel action")
	}

	s.report(ctx, panelID, err)
	if err != nil {
		var appErr *pkgError.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, pkgError.WrapAppError(err, "panel request failed", http.StatusBadGateway).WithCode("PANEL_ERROR")
	}
	return results, nil
}

func statusLine(st domainPanel.OrderStatus) domainPanel.CommandResult {
	if st.Error != "" {
		return domainPanel.CommandResult{OrderID: st.OrderID, Message: st.Error, Failed: true}
	}
	msg := fmt.Sprintf("%s, start %s, remains %s", st.Status, humanize.Comma(st.StartCount), humanize.Comma(st.Remains))
	if st.Charge > 0 {
		msg += fmt.Sprintf(", charge %s %s", humanize.CommafWithDigits(st.Charge, 4), st.Currency)
	}
	return domainPanel.CommandResult{OrderID: st.OrderID, Message: msg}
}

func actionLine(action domainPanel.Action, a domainPanel.ActionResult) domainPanel.CommandResult {
	if a.Error != "" {
		return domainPanel.CommandResult{OrderID: a.OrderID, Message: a.Error, Failed: true}
	}
	msg := string(action) + " requested"
	if a.Ref != "" && a.Ref != "1" {
		msg += " (ref " + a.Ref + ")"
	}
	return domainPanel.CommandResult{OrderID: a.OrderID, Message: msg}
}
