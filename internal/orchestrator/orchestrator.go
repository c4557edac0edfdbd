// Package orchestrator sequences the end-to-end acquisition protocol:
// derive the release instant, wait, authenticate, then poll-select-resolve-
// code-submit until a terminal state is reached. All retry and pacing
// decisions live here; the collaborators stay pure.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"registration-bot/config"
	"registration-bot/internal/booking"
	"registration-bot/internal/client"
	"registration-bot/internal/clock"
	"registration-bot/internal/journal"
	"registration-bot/internal/parse"
	"registration-bot/internal/release"
	"registration-bot/internal/smscode"
)

// Remote is the scheduling-service surface the orchestrator drives. It is
// satisfied by *client.Client and mocked in tests.
type Remote interface {
	Login(ctx context.Context, username, password string) error
	ListSlots(ctx context.Context, hospitalID, departmentID, dutyCode, dutyDate string) ([]booking.Slot, error)
	AppointmentPage(ctx context.Context, hospitalID, departmentID string) (string, error)
	ConfirmationPage(ctx context.Context, hospitalID, departmentID string, doctorID, dutySourceID int64) (string, error)
	TriggerSMSCode(ctx context.Context) error
	SubmitConfirmation(ctx context.Context, req client.ConfirmationRequest) error
}

// Params bundles the orchestrator's collaborators.
type Params struct {
	Config   *config.Config
	Remote   Remote
	Selector *booking.Selector
	Acquirer smscode.Acquirer
	// CodeAttempts bounds code acquisition per registration attempt:
	// 60 when a relay tolerates SMS delivery latency, 3 interactively.
	CodeAttempts int
	Clock        clock.Clock
	// Limiter paces the polling loop; defaults to one poll per second.
	Limiter *rate.Limiter
	Journal *journal.Journal
	Logger  *zap.Logger
}

// Orchestrator runs the acquisition state machine. Single-threaded: it owns
// the session and never has two remote calls in flight.
type Orchestrator struct {
	cfg          *config.Config
	remote       Remote
	selector     *booking.Selector
	acquirer     smscode.Acquirer
	codeAttempts int
	clock        clock.Clock
	waiter       *release.Waiter
	limiter      *rate.Limiter
	journal      *journal.Journal
	logger       *zap.Logger
	state        State
}

// New creates an Orchestrator, filling in default pacing and clock.
func New(p Params) *Orchestrator {
	if p.Clock == nil {
		p.Clock = clock.Real()
	}
	if p.Limiter == nil {
		p.Limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	if p.CodeAttempts <= 0 {
		p.CodeAttempts = 3
	}
	return &Orchestrator{
		cfg:          p.Config,
		remote:       p.Remote,
		selector:     p.Selector,
		acquirer:     p.Acquirer,
		codeAttempts: p.CodeAttempts,
		clock:        p.Clock,
		waiter:       release.NewWaiter(p.Clock, p.Logger),
		limiter:      p.Limiter,
		journal:      p.Journal,
		logger:       p.Logger,
		state:        StateIdle,
	}
}

// State returns the machine's current state.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) setState(ctx context.Context, s State, detail string) {
	o.state = s
	o.logger.Info("state", zap.Stringer("state", s), zap.String("detail", detail))
	if err := o.journal.Record(ctx, s.String(), detail); err != nil {
		o.logger.Warn("journal write failed", zap.Error(err))
	}
}

// Run executes the protocol until a terminal state. The returned state is
// always terminal unless ctx was cancelled or release-time computation
// failed; the error carries the cause in those cases.
func (o *Orchestrator) Run(ctx context.Context) (State, error) {
	releaseAt, dutyDate, err := o.computeRelease(ctx)
	if err != nil {
		return o.state, err
	}

	o.setState(ctx, StateWaitingForRelease, releaseAt.Format("2006-01-02 15:04"))
	o.waiter.WaitUntil(releaseAt)

	o.setState(ctx, StateAuthenticating, "")
	if err := o.remote.Login(ctx, o.cfg.Username, o.cfg.Password); err != nil {
		o.setState(ctx, StateFailed, err.Error())
		return StateFailed, err
	}

	return o.pollLoop(ctx, dutyDate)
}

// computeRelease fetches the appointment page and derives the release
// instant and effective duty date. Any failure here aborts the run: a
// malformed page means the upstream format changed.
func (o *Orchestrator) computeRelease(ctx context.Context) (time.Time, string, error) {
	page, err := o.remote.AppointmentPage(ctx, o.cfg.HospitalID, o.cfg.DepartmentID)
	if err != nil {
		return time.Time{}, "", err
	}
	win, err := parse.ReleaseWindowFromPage(page)
	if err != nil {
		return time.Time{}, "", err
	}

	dutyDate := o.cfg.DutyDate
	if dutyDate == "" {
		dutyDate = release.DefaultDutyDate(o.clock.Now(), win)
	}
	releaseAt, err := release.At(dutyDate, win)
	if err != nil {
		return time.Time{}, "", err
	}

	o.logger.Info("release schedule resolved",
		zap.String("dutyDate", dutyDate),
		zap.String("dutyCode", o.cfg.DutyCode),
		zap.Time("release", releaseAt))
	return releaseAt, dutyDate, nil
}

// pollLoop is the Polling→...→Polling cycle. Every non-terminal failure
// folds back into Polling behind the pacing limiter; only Exhausted and
// Succeeded break out.
func (o *Orchestrator) pollLoop(ctx context.Context, dutyDate string) (State, error) {
	for {
		if err := ctx.Err(); err != nil {
			return o.state, err
		}
		o.setState(ctx, StatePolling, "")
		if err := o.limiter.Wait(ctx); err != nil {
			return o.state, err
		}

		slots, err := o.remote.ListSlots(ctx, o.cfg.HospitalID, o.cfg.DepartmentID, o.cfg.DutyCode, dutyDate)
		if err != nil {
			o.logger.Warn("slot listing failed", zap.Error(err))
			continue
		}
		if len(slots) == 0 {
			o.logger.Info("quota not yet published")
			continue
		}

		o.setState(ctx, StateSelecting, "")
		slot, err := o.selector.Choose(slots)
		switch {
		case errors.Is(err, booking.ErrExhausted):
			o.setState(ctx, StateExhausted, "no eligible slot remaining")
			return StateExhausted, nil
		case err != nil:
			// Declined or otherwise unresolved; the listing may change.
			o.logger.Info("no slot chosen this round", zap.Error(err))
			continue
		}

		o.setState(ctx, StateResolvingPatient, slot.DoctorName)
		patientID, err := o.resolvePatient(ctx, slot)
		if err != nil {
			o.logger.Warn("patient resolution failed, re-polling", zap.Error(err))
			continue
		}

		o.setState(ctx, StateAcquiringCode, "")
		if err := o.remote.TriggerSMSCode(ctx); err != nil {
			o.logger.Warn("sms trigger failed, re-polling", zap.Error(err))
			continue
		}
		code := o.acquireCode(ctx)
		if code == "" {
			o.logger.Warn("code acquisition exhausted, re-polling")
			continue
		}

		o.setState(ctx, StateSubmitting, slot.DoctorName)
		err = o.remote.SubmitConfirmation(ctx, client.ConfirmationRequest{
			HospitalID:     o.cfg.HospitalID,
			DepartmentID:   o.cfg.DepartmentID,
			DoctorID:       slot.DoctorID,
			DutySourceID:   slot.DutySourceID,
			PatientID:      patientID,
			MedicareCardID: o.cfg.MedicareCardID,
			SMSCode:        code,
		})
		if err == nil {
			o.setState(ctx, StateSucceeded, slot.DoctorName)
			return StateSucceeded, nil
		}

		// The slot was likely lost to a competitor; re-poll rather than
		// resubmit. The code cache guarantees a fresh code next time.
		var bizErr *client.BusinessError
		if errors.As(err, &bizErr) {
			o.logger.Warn("confirmation declined",
				zap.Int("code", bizErr.Code),
				zap.String("msg", bizErr.Msg))
		} else {
			o.logger.Warn("confirmation failed", zap.Error(err))
		}
	}
}

func (o *Orchestrator) resolvePatient(ctx context.Context, slot booking.Slot) (string, error) {
	page, err := o.remote.ConfirmationPage(ctx, o.cfg.HospitalID, o.cfg.DepartmentID, slot.DoctorID, slot.DutySourceID)
	if err != nil {
		return "", err
	}
	patientID, err := parse.PatientID(page, o.cfg.PatientName)
	if err != nil {
		return "", err
	}
	o.logger.Info("patient resolved", zap.String("patientId", patientID))
	return patientID, nil
}

// acquireCode retries the acquirer at 1-second spacing, tolerating SMS
// delivery latency. Empty result means the attempt budget ran out.
func (o *Orchestrator) acquireCode(ctx context.Context) string {
	for i := 0; i < o.codeAttempts; i++ {
		if ctx.Err() != nil {
			return ""
		}
		code, err := o.acquirer.Fetch(ctx)
		if err != nil {
			o.logger.Warn("code fetch failed", zap.Error(err))
		}
		if code != "" {
			o.logger.Info("verification code obtained", zap.String("code", code))
			return code
		}
		o.clock.Sleep(time.Second)
	}
	return ""
}
