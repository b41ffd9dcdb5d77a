package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"homebot/internal/dialog"
	"homebot/internal/dialogs"
	"homebot/internal/domain"
	"homebot/internal/repository"
	"homebot/internal/turn"
)

// Top-level labels of the dispatch application.
const (
	DispatchHomebot = "l_homebot"
	DispatchQnA     = "q_homebotqna"
)

type IntentClassifier interface {
	Recognize(ctx context.Context, text string) (*domain.IntentResult, error)
}

type Answerer interface {
	Answer(ctx context.Context, question string) (answer string, found bool, err error)
}

type StateReadWriter interface {
	LoadConversation(ctx context.Context, conversationID string) (*domain.ConversationState, error)
	SaveConversation(ctx context.Context, st *domain.ConversationState) error
	LoadUser(ctx context.Context, userID string) (*domain.UserState, error)
	SaveUser(ctx context.Context, st *domain.UserState) error
}

// Options tunes routing. Zero values select the defaults.
type Options struct {
	Messages dialogs.Messages
	// IntentMinScore is the lowest domain-intent score that may begin its dialog.
	IntentMinScore float64
	// IdleTimeout expires suspended dialogs; zero disables expiry.
	IdleTimeout time.Duration
	Now         func() time.Time
}

type TurnInput struct {
	Activity      domain.Activity
	CorrelationID string
}

type TurnOutput struct {
	Replies []domain.Activity
}

// TurnService routes each inbound activity to the dialog that should handle it.
type TurnService struct {
	dispatcher IntentClassifier
	homebot    IntentClassifier
	qna        Answerer
	state      StateReadWriter
	dialogs    *dialog.Set
	log        zerolog.Logger

	msgs           dialogs.Messages
	intentMinScore float64
	idleTimeout    time.Duration
	now            func() time.Time
	locks          *keyedMutex
}

func NewTurnService(dispatcher, homebot IntentClassifier, qna Answerer, state StateReadWriter, set *dialog.Set, log zerolog.Logger, opts Options) (*TurnService, error) {
	if dispatcher == nil {
		return nil, errors.New("usecase: dispatch classifier must not be nil")
	}
	if homebot == nil {
		return nil, errors.New("usecase: homebot classifier must not be nil")
	}
	if qna == nil {
		return nil, errors.New("usecase: qna answerer must not be nil")
	}
	if state == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	if set == nil {
		return nil, errors.New("usecase: dialog set must not be nil")
	}
	if err := set.Require(dialogs.OnboardingID, dialogs.NoneID); err != nil {
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TurnService{
		dispatcher:     dispatcher,
		homebot:        homebot,
		qna:            qna,
		state:          state,
		dialogs:        set,
		log:            log,
		msgs:           opts.Messages.Merge(dialogs.DefaultMessages()),
		intentMinScore: opts.IntentMinScore,
		idleTimeout:    opts.IdleTimeout,
		now:            now,
		locks:          newKeyedMutex(),
	}, nil
}

// ProcessActivity runs one turn. State is loaded once, mutated by the
// handling dialog and saved once; replies are returned in send order.
func (s *TurnService) ProcessActivity(ctx context.Context, in TurnInput) (TurnOutput, error) {
	act := in.Activity
	convID := strings.TrimSpace(act.Conversation.ID)
	if convID == "" {
		return TurnOutput{}, newError(ErrorInvalidInput, "missing_conversation_id", nil)
	}
	if strings.TrimSpace(string(act.Type)) == "" {
		return TurnOutput{}, newError(ErrorInvalidInput, "missing_activity_type", nil)
	}

	log := s.log.With().
		Str("conversation_id", convID).
		Str("activity_type", string(act.Type)).
		Str("correlation_id", in.CorrelationID).
		Logger()

	var userID string
	switch act.Type {
	case domain.ActivityMessage:
		userID = strings.TrimSpace(act.From.ID)
		if userID == "" {
			return TurnOutput{}, newError(ErrorInvalidInput, "missing_user_id", nil)
		}
	case domain.ActivityConversationUpdate:
		member, ok := joinedMember(act)
		if !ok {
			log.Debug().Msg("conversation update without new members")
			return TurnOutput{}, nil
		}
		userID = member.ID
	default:
		log.Info().Msg("ignoring activity")
		return TurnOutput{}, nil
	}

	unlock := s.locks.Lock(convID)
	defer unlock()

	conv, err := s.state.LoadConversation(ctx, convID)
	if err != nil {
		return TurnOutput{}, newError(ErrorInternal, "state_load_error", err)
	}
	user, err := s.state.LoadUser(ctx, userID)
	if err != nil {
		return TurnOutput{}, newError(ErrorInternal, "state_load_error", err)
	}

	now := s.now().UTC()
	tc := turn.New(act, conv, user)
	dc := s.dialogs.CreateContext(tc)
	s.expireIdle(dc, now, log)

	if act.Type == domain.ActivityMessage {
		err = s.onMessage(ctx, dc, log)
	} else {
		err = s.onMembersAdded(ctx, dc)
	}
	if err != nil {
		return TurnOutput{}, newError(ErrorInternal, "dialog_error", err)
	}

	conv.LastActivity = now
	if err := s.save(ctx, conv, user); err != nil {
		return TurnOutput{}, err
	}

	replies := tc.Replies()
	log.Info().
		Int("replies", len(replies)).
		Int("stack_depth", len(conv.DialogStack)).
		Bool("active_flow", conv.ActiveFlow).
		Msg("turn complete")
	return TurnOutput{Replies: replies}, nil
}

func (s *TurnService) onMessage(ctx context.Context, dc *dialog.Context, log zerolog.Logger) error {
	tc := dc.Turn
	continued := false

	switch {
	case tc.Conversation.HasActiveDialog():
		continued = true
		if err := s.continueDialog(ctx, dc, log); err != nil {
			return err
		}
	case !tc.User.Onboarded():
		if _, err := dc.Begin(ctx, dialogs.OnboardingID, nil); err != nil {
			return err
		}
	default:
		if err := s.dispatch(ctx, dc, log); err != nil {
			return err
		}
	}

	if tc.Responded() {
		return nil
	}
	if !continued {
		if err := s.continueDialog(ctx, dc, log); err != nil {
			return err
		}
	}
	if !tc.Responded() {
		tc.Send(s.msgs.Help)
	}
	return nil
}

// continueDialog resumes the top instance. An instance whose dialog is no
// longer registered is discarded together with the rest of the stack, and an
// active flow with nothing on the stack is cleared.
func (s *TurnService) continueDialog(ctx context.Context, dc *dialog.Context, log zerolog.Logger) error {
	res, err := dc.Continue(ctx)
	var nf *dialog.NotFoundError
	if errors.As(err, &nf) {
		log.Warn().Str("dialog", nf.Name).Msg("discarding stack with unknown dialog")
		_, _ = dc.Cancel()
		return nil
	}
	if err != nil {
		return err
	}
	if conv := dc.Turn.Conversation; res.Status == dialog.StatusEmpty && conv.ActiveFlow {
		log.Warn().Msg("clearing active flow without a dialog")
		conv.ActiveFlow = false
	}
	return nil
}

func (s *TurnService) dispatch(ctx context.Context, dc *dialog.Context, log zerolog.Logger) error {
	tc := dc.Turn
	text := tc.Activity.Text

	res, err := s.dispatcher.Recognize(ctx, text)
	if err != nil {
		s.apologize(tc, log, "dispatch", err)
		return nil
	}
	top, _ := res.TopIntent()
	log.Debug().Str("intent", top.Label).Float64("score", top.Score).Msg("dispatched")

	switch top.Label {
	case DispatchHomebot:
		hres, err := s.homebot.Recognize(ctx, text)
		if err != nil {
			s.apologize(tc, log, "homebot", err)
			return nil
		}
		_, err = dc.Begin(ctx, s.targetDialog(hres, log), hres)
		return err
	case DispatchQnA:
		answer, found, err := s.qna.Answer(ctx, text)
		if err != nil {
			s.apologize(tc, log, "qna", err)
			return nil
		}
		if !found {
			tc.Send(s.msgs.QnAFallback)
			return nil
		}
		tc.Send(answer)
		return nil
	default:
		_, err = dc.Begin(ctx, dialogs.NoneID, res)
		return err
	}
}

// targetDialog maps the domain classifier's top intent to a dialog name.
func (s *TurnService) targetDialog(res *domain.IntentResult, log zerolog.Logger) string {
	top, ok := res.TopIntent()
	if !ok || top.Label == dialogs.OnboardingID || !s.dialogs.Has(top.Label) {
		log.Info().Str("intent", top.Label).Msg("no dialog for intent")
		return dialogs.NoneID
	}
	if top.Score < s.intentMinScore {
		log.Info().Str("intent", top.Label).Float64("score", top.Score).Msg("intent below threshold")
		return dialogs.NoneID
	}
	return top.Label
}

func (s *TurnService) onMembersAdded(ctx context.Context, dc *dialog.Context) error {
	tc := dc.Turn
	if tc.Conversation.HasActiveDialog() {
		return nil
	}
	if !tc.User.Onboarded() {
		_, err := dc.Begin(ctx, dialogs.OnboardingID, nil)
		return err
	}
	tc.Send(fmt.Sprintf(s.msgs.WelcomeBack, tc.User.UserInfo.UserName))
	return nil
}

func (s *TurnService) expireIdle(dc *dialog.Context, now time.Time, log zerolog.Logger) {
	conv := dc.Turn.Conversation
	if s.idleTimeout <= 0 || !conv.HasActiveDialog() || conv.LastActivity.IsZero() {
		return
	}
	idle := now.Sub(conv.LastActivity)
	if idle <= s.idleTimeout {
		return
	}
	log.Info().Dur("idle", idle).Int("stack_depth", len(conv.DialogStack)).Msg("expiring idle dialog")
	_, _ = dc.Cancel()
}

func (s *TurnService) apologize(tc *turn.Context, log zerolog.Logger, source string, err error) {
	ev := log.Error().Err(err).Str("classifier", source)
	if status, ok := upstreamStatusCode(err); ok {
		ev = ev.Int("upstream_status", status)
	}
	ev.Msg("classification failed")
	tc.Send(s.msgs.Apology)
}

func (s *TurnService) save(ctx context.Context, conv *domain.ConversationState, user *domain.UserState) error {
	if err := s.state.SaveConversation(ctx, conv); err != nil {
		return saveError(err)
	}
	if err := s.state.SaveUser(ctx, user); err != nil {
		return saveError(err)
	}
	return nil
}

func saveError(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return newError(ErrorConflict, "state_version_conflict", err)
	}
	return newError(ErrorInternal, "state_write_error", err)
}

// joinedMember returns the first added member that is not the bot itself.
func joinedMember(act domain.Activity) (domain.ChannelAccount, bool) {
	for _, m := range act.MembersAdded {
		if m.ID != "" && m.ID != act.Recipient.ID {
			return m, true
		}
	}
	return domain.ChannelAccount{}, false
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
