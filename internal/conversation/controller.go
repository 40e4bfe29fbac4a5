// Package conversation drives a customer through identification or signup
// and then hands every question to the retrieval engine.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"retailbot/internal/domain"
	"retailbot/internal/topics"
	"retailbot/internal/userstore"
	"retailbot/internal/validate"
)

const (
	defaultSuggestionThreshold = 0.6
	maxSuggestions             = 2
)

// UserStore is the part of the user store the controller needs.
type UserStore interface {
	UserExists(ctx context.Context, id string) (bool, error)
	RegisterUser(ctx context.Context, id, fullName, phone, email string) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Engine answers questions once a customer is identified.
type Engine interface {
	AskQuestion(ctx context.Context, question string, uc *domain.UserContext) (string, []string, domain.AnswerMetadata)
	ContextAwareSuggestions(question string) []string
}

// InteractionLogger records each turn.
type InteractionLogger interface {
	LogInteraction(ctx context.Context, in userstore.Interaction) error
}

// Controller is stateless apart from its collaborators; every turn works on
// the session it is handed.
type Controller struct {
	users     UserStore
	engine    Engine
	history   InteractionLogger
	logger    *zap.Logger
	debug     bool
	threshold float64
}

// Option customises a Controller.
type Option func(*Controller)

// WithInteractionLog logs every turn to l.
func WithInteractionLog(l InteractionLogger) Option {
	return func(c *Controller) { c.history = l }
}

// WithDebugFooter appends the quality score and source count to answers.
func WithDebugFooter(on bool) Option {
	return func(c *Controller) { c.debug = on }
}

// WithSuggestionThreshold sets the quality score under which follow-up
// questions are suggested.
func WithSuggestionThreshold(t float64) Option {
	return func(c *Controller) {
		if t > 0 {
			c.threshold = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewController(users UserStore, engine Engine, opts ...Option) *Controller {
	c := &Controller{
		users:     users,
		engine:    engine,
		logger:    zap.NewNop(),
		threshold: defaultSuggestionThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleMessage advances the conversation by one turn and returns the reply
// with the updated session. A nil or uninitialised session starts at the
// welcome step. It never fails: problems turn into apologetic replies.
func (c *Controller) HandleMessage(ctx context.Context, message string, s *Session) (reply string, out *Session) {
	if s == nil {
		s = NewSession()
	}
	if s.State == "" {
		s.reset()
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	out = s
	queryType := ""

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic handling message", zap.Any("panic", r), zap.String("state", string(s.State)))
			reply = activeChatFailed
		}
		c.logTurn(ctx, s, message, reply, queryType)
	}()

	text := strings.TrimSpace(message)
	switch s.State {
	case StateWelcome:
		s.State = StateIdentifyUserType
		return WelcomeMessage, s
	case StateIdentifyUserType:
		return c.identifyUserType(text, s), s
	case StateExistingUserID:
		return c.existingUserID(ctx, text, s), s
	case StateNewUserID:
		return c.newUserID(ctx, text, s), s
	case StateNewUserName:
		return c.newUserName(text, s), s
	case StateNewUserPhone:
		return c.newUserPhone(text, s), s
	case StateNewUserEmail:
		return c.newUserEmail(ctx, text, s), s
	case StateChatActive:
		queryType = QueryType(text)
		return c.activeChat(ctx, text, s), s
	}

	c.logger.Warn("unknown conversation state, resetting", zap.String("state", string(s.State)))
	s.reset()
	return resetPrefix + WelcomeMessage, s
}

func (c *Controller) identifyUserType(text string, s *Session) string {
	switch topics.ClassifyCustomer(text) {
	case topics.IntentNew:
		s.State = StateNewUserID
		return askNewUserID
	case topics.IntentReturning:
		s.State = StateExistingUserID
		return askExistingUserID
	}
	return clarifyUserType
}

func (c *Controller) existingUserID(ctx context.Context, id string, s *Session) string {
	if ok, msg := validate.ID(id); !ok {
		return fmt.Sprintf(existingIDInvalid, msg)
	}
	user, err := c.users.GetUser(ctx, id)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		s.State = StateIdentifyUserType
		return existingIDNotFound
	case err != nil:
		c.logger.Error("user lookup failed", zap.Error(err))
		return lookupFailed
	}
	s.CurrentUser = user
	s.State = StateChatActive
	return fmt.Sprintf(greetExistingUser, user.FullName)
}

func (c *Controller) newUserID(ctx context.Context, id string, s *Session) string {
	if ok, msg := validate.ID(id); !ok {
		return fmt.Sprintf(fieldInvalid, msg)
	}
	exists, err := c.users.UserExists(ctx, id)
	if err != nil {
		c.logger.Error("user existence check failed", zap.Error(err))
		return registrationFailed
	}
	if exists {
		return idAlreadyExists
	}
	s.Pending.ID = id
	s.State = StateNewUserName
	return askFullName
}

func (c *Controller) newUserName(name string, s *Session) string {
	if ok, msg := validate.FullName(name); !ok {
		return fmt.Sprintf(fieldInvalid, msg)
	}
	s.Pending.FullName = name
	s.State = StateNewUserPhone
	return askPhone
}

func (c *Controller) newUserPhone(phone string, s *Session) string {
	if ok, msg := validate.Phone(phone); !ok {
		return fmt.Sprintf(fieldInvalid, msg)
	}
	s.Pending.Phone = phone
	s.State = StateNewUserEmail
	return askEmail
}

func (c *Controller) newUserEmail(ctx context.Context, email string, s *Session) string {
	if ok, msg := validate.Email(email); !ok {
		return fmt.Sprintf(fieldInvalid, msg)
	}
	s.Pending.Email = email
	p := s.Pending
	err := c.users.RegisterUser(ctx, p.ID, p.FullName, p.Phone, p.Email)
	switch {
	case errors.Is(err, domain.ErrUserExists):
		// the identifier belongs to a deactivated record; ask for another one
		c.logger.Info("identifier already registered", zap.String("user", p.ID))
		s.Pending = Registration{}
		s.State = StateNewUserID
		return idAlreadyExists
	case err != nil:
		c.logger.Error("registration failed", zap.String("user", p.ID), zap.Error(err))
		return registrationFailed
	}

	user, err := c.users.GetUser(ctx, p.ID)
	if err != nil {
		c.logger.Warn("reading registered user failed", zap.String("user", p.ID), zap.Error(err))
		user = &domain.User{ID: p.ID, FullName: p.FullName, Phone: p.Phone, Email: p.Email, Active: true}
	}
	s.CurrentUser = user
	s.Pending = Registration{}
	s.State = StateChatActive
	return fmt.Sprintf(registrationDone, p.FullName)
}

func (c *Controller) activeChat(ctx context.Context, question string, s *Session) string {
	if topics.IsCapabilityQuestion(question) {
		return capabilities(s.CurrentUser)
	}

	uc := &domain.UserContext{CustomerType: "nuevo"}
	if s.CurrentUser != nil {
		uc = &domain.UserContext{CustomerType: "frecuente", UserID: s.CurrentUser.ID}
	}
	answer, sources, meta := c.engine.AskQuestion(ctx, question, uc)

	var b strings.Builder
	b.WriteString(answer)
	if len(sources) > 0 {
		fmt.Fprintf(&b, sourcesFooter, strings.Join(sources, ", "))
	}
	if meta.QualityScore < c.threshold {
		if sugg := c.engine.ContextAwareSuggestions(question); len(sugg) > 0 {
			b.WriteString(suggestionsHeader)
			if len(sugg) > maxSuggestions {
				sugg = sugg[:maxSuggestions]
			}
			for _, q := range sugg {
				fmt.Fprintf(&b, suggestionLine, q)
			}
		}
	}
	if c.debug {
		fmt.Fprintf(&b, debugFooter, meta.QualityScore, meta.SourcesUsed)
	}
	return b.String()
}

func capabilities(u *domain.User) string {
	name := ""
	if u != nil && u.FullName != "" {
		name = " " + u.FullName
	}
	return fmt.Sprintf(capabilitiesTemplate, name)
}

// QueryType maps a question onto the analytics category it is counted under.
func QueryType(question string) string {
	switch topics.DetectTopic(question) {
	case topics.Schedule:
		return userstore.QuerySchedule
	case topics.Promotions:
		return userstore.QueryPromotions
	}
	return userstore.QueryGeneral
}

func (c *Controller) logTurn(ctx context.Context, s *Session, message, reply, queryType string) {
	if c.history == nil {
		return
	}
	in := userstore.Interaction{
		SessionID:   s.ID,
		UserMessage: message,
		BotReply:    reply,
		QueryType:   queryType,
	}
	if s.CurrentUser != nil {
		in.UserID = s.CurrentUser.ID
	}
	if err := c.history.LogInteraction(ctx, in); err != nil {
		c.logger.Warn("logging interaction failed", zap.String("session", s.ID), zap.Error(err))
	}
}
