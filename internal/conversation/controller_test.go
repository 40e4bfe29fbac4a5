package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"retailbot/internal/domain"
	"retailbot/internal/userstore"
	"retailbot/internal/validate"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) UserExists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) RegisterUser(ctx context.Context, id, fullName, phone, email string) error {
	return m.Called(ctx, id, fullName, phone, email).Error(0)
}

func (m *mockStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

type mockEngine struct{ mock.Mock }

func (m *mockEngine) AskQuestion(ctx context.Context, q string, uc *domain.UserContext) (string, []string, domain.AnswerMetadata) {
	args := m.Called(ctx, q, uc)
	sources, _ := args.Get(1).([]string)
	return args.String(0), sources, args.Get(2).(domain.AnswerMetadata)
}

func (m *mockEngine) ContextAwareSuggestions(q string) []string {
	s, _ := m.Called(q).Get(0).([]string)
	return s
}

type mockHistory struct{ mock.Mock }

func (m *mockHistory) LogInteraction(ctx context.Context, in userstore.Interaction) error {
	return m.Called(ctx, in).Error(0)
}

type panickingEngine struct{}

func (panickingEngine) AskQuestion(context.Context, string, *domain.UserContext) (string, []string, domain.AnswerMetadata) {
	panic("index corrupted")
}

func (panickingEngine) ContextAwareSuggestions(string) []string { return nil }

var ana = &domain.User{ID: "12345678", FullName: "Ana María Pérez", Phone: "3001234567", Email: "ana@example.com", Active: true}

func at(state State) *Session {
	return &Session{ID: "s-1", State: state}
}

func TestHandleMessage_WelcomeInitialisesSession(t *testing.T) {
	c := NewController(&mockStore{}, &mockEngine{})
	ctx := context.Background()

	for name, s := range map[string]*Session{"nil": nil, "empty": {}, "welcome": at(StateWelcome)} {
		t.Run(name, func(t *testing.T) {
			reply, out := c.HandleMessage(ctx, "", s)
			assert.Equal(t, WelcomeMessage, reply)
			require.NotNil(t, out)
			assert.Equal(t, StateIdentifyUserType, out.State)
			assert.Nil(t, out.CurrentUser)
		})
	}

	_, out := c.HandleMessage(ctx, "hola", nil)
	assert.NotEmpty(t, out.ID, "new sessions get an identifier")
}

func TestHandleMessage_SessionWithoutIDIsLoggedUnderNewID(t *testing.T) {
	history := &mockHistory{}
	history.On("LogInteraction", mock.Anything, mock.MatchedBy(func(in userstore.Interaction) bool {
		return in.SessionID != ""
	})).Return(nil)
	c := NewController(&mockStore{}, &mockEngine{}, WithInteractionLog(history))

	reply, out := c.HandleMessage(context.Background(), "", &Session{})
	assert.Equal(t, WelcomeMessage, reply)
	assert.NotEmpty(t, out.ID)

	s := at(StateIdentifyUserType)
	s.ID = ""
	_, out = c.HandleMessage(context.Background(), "soy nuevo", s)
	assert.NotEmpty(t, out.ID)
	history.AssertNumberOfCalls(t, "LogInteraction", 2)
}

func TestHandleMessage_IdentifyUserType(t *testing.T) {
	c := NewController(&mockStore{}, &mockEngine{})
	tests := []struct {
		message string
		want    State
		reply   string
	}{
		{"Quiero registrarme", StateNewUserID, askNewUserID},
		{"Soy nueva", StateNewUserID, askNewUserID},
		{"Ya tengo cuenta", StateExistingUserID, askExistingUserID},
		{"cliente frecuente", StateExistingUserID, askExistingUserID},
		{"no sé", StateIdentifyUserType, clarifyUserType},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			reply, out := c.HandleMessage(context.Background(), tt.message, at(StateIdentifyUserType))
			assert.Equal(t, tt.want, out.State)
			assert.Equal(t, tt.reply, reply)
		})
	}
}

func TestHandleMessage_ExistingUser(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid format", func(t *testing.T) {
		c := NewController(&mockStore{}, &mockEngine{})
		reply, out := c.HandleMessage(ctx, "12a", at(StateExistingUserID))
		_, msg := validate.ID("12a")
		assert.Equal(t, fmt.Sprintf(existingIDInvalid, msg), reply)
		assert.Equal(t, StateExistingUserID, out.State)
	})

	t.Run("found", func(t *testing.T) {
		store := &mockStore{}
		store.On("GetUser", mock.Anything, "12345678").Return(ana, nil).Once()
		c := NewController(store, &mockEngine{})

		reply, out := c.HandleMessage(ctx, " 12345678 ", at(StateExistingUserID))
		assert.Equal(t, "¡Hola Ana María Pérez! 😊 ¿En qué puedo ayudarte hoy?", reply)
		assert.Equal(t, StateChatActive, out.State)
		assert.Same(t, ana, out.CurrentUser)
		store.AssertExpectations(t)
	})

	t.Run("not found offers registration", func(t *testing.T) {
		store := &mockStore{}
		store.On("GetUser", mock.Anything, "99999").Return(nil, domain.ErrUserNotFound)
		c := NewController(store, &mockEngine{})

		reply, out := c.HandleMessage(ctx, "99999", at(StateExistingUserID))
		assert.Equal(t, existingIDNotFound, reply)
		assert.Equal(t, StateIdentifyUserType, out.State)
		assert.Nil(t, out.CurrentUser)
	})

	t.Run("store failure keeps state", func(t *testing.T) {
		store := &mockStore{}
		store.On("GetUser", mock.Anything, "99999").Return(nil, errors.New("disk I/O error"))
		c := NewController(store, &mockEngine{})

		reply, out := c.HandleMessage(ctx, "99999", at(StateExistingUserID))
		assert.Equal(t, lookupFailed, reply)
		assert.Equal(t, StateExistingUserID, out.State)
	})
}

func TestHandleMessage_NewUserIDAlreadyRegistered(t *testing.T) {
	store := &mockStore{}
	store.On("UserExists", mock.Anything, "12345678").Return(true, nil)
	c := NewController(store, &mockEngine{})

	reply, out := c.HandleMessage(context.Background(), "12345678", at(StateNewUserID))
	assert.Equal(t, StateNewUserID, out.State)
	assert.Contains(t, reply, "ya está registrada")
	assert.Empty(t, out.Pending.ID)
	store.AssertNotCalled(t, "RegisterUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessage_FullRegistration(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{}
	store.On("UserExists", mock.Anything, "12345678").Return(false, nil).Once()
	store.On("RegisterUser", mock.Anything, "12345678", "Ana María Pérez", "3001234567", "ana@example.com").Return(nil).Once()
	store.On("GetUser", mock.Anything, "12345678").Return(ana, nil).Once()
	c := NewController(store, &mockEngine{})

	s := at(StateIdentifyUserType)
	steps := []struct {
		message string
		state   State
		reply   string
	}{
		{"soy nuevo", StateNewUserID, askNewUserID},
		{"123", StateNewUserID, fmt.Sprintf(fieldInvalid, "La identificación debe tener entre 4 y 11 dígitos numéricos")},
		{"12345678", StateNewUserName, askFullName},
		{"Ana123", StateNewUserName, fmt.Sprintf(fieldInvalid, "El nombre solo puede contener letras, espacios y tildes")},
		{"Ana María Pérez", StateNewUserPhone, askPhone},
		{"1001234567", StateNewUserPhone, fmt.Sprintf(fieldInvalid, "El teléfono debe tener exactamente 10 dígitos y empezar por 3 o 6")},
		{"3001234567", StateNewUserEmail, askEmail},
		{"ana.example.com", StateNewUserEmail, fmt.Sprintf(fieldInvalid, "El email debe contener el símbolo @")},
		{"ana@example.com", StateChatActive, "🎉 ¡Registro completado exitosamente! Bienvenido/a Ana María Pérez. ¿En qué puedo ayudarte hoy?"},
	}
	for _, step := range steps {
		var reply string
		reply, s = c.HandleMessage(ctx, step.message, s)
		assert.Equal(t, step.state, s.State, step.message)
		assert.Equal(t, step.reply, reply, step.message)
	}

	assert.Same(t, ana, s.CurrentUser)
	assert.Empty(t, s.Pending.Progress(), "pending fields are cleared after signup")
	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "RegisterUser", 1)
}

func TestHandleMessage_RegistrationFailureStaysOnEmail(t *testing.T) {
	store := &mockStore{}
	store.On("RegisterUser", mock.Anything, "12345678", "Ana", "3001234567", "ana@example.com").Return(errors.New("disk I/O error"))
	c := NewController(store, &mockEngine{})

	s := at(StateNewUserEmail)
	s.Pending = Registration{ID: "12345678", FullName: "Ana", Phone: "3001234567"}
	reply, out := c.HandleMessage(context.Background(), "ana@example.com", s)

	assert.Equal(t, registrationFailed, reply)
	assert.Equal(t, StateNewUserEmail, out.State)
	assert.Nil(t, out.CurrentUser)
	store.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestHandleMessage_DeactivatedIdentifierAsksForAnotherID(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{}
	store.On("RegisterUser", mock.Anything, "12345678", "Ana", "3001234567", "ana@example.com").Return(domain.ErrUserExists)
	store.On("UserExists", mock.Anything, "87654321").Return(false, nil)
	c := NewController(store, &mockEngine{})

	s := at(StateNewUserEmail)
	s.Pending = Registration{ID: "12345678", FullName: "Ana", Phone: "3001234567"}
	reply, out := c.HandleMessage(ctx, "ana@example.com", s)

	assert.Equal(t, idAlreadyExists, reply)
	assert.Equal(t, StateNewUserID, out.State)
	assert.Equal(t, Registration{}, out.Pending)
	assert.Nil(t, out.CurrentUser)

	reply, out = c.HandleMessage(ctx, "87654321", out)
	assert.Equal(t, askFullName, reply)
	assert.Equal(t, StateNewUserName, out.State)
	assert.Equal(t, "87654321", out.Pending.ID)
}

func activeSession() *Session {
	s := at(StateChatActive)
	s.CurrentUser = ana
	return s
}

func TestHandleMessage_ActiveChat(t *testing.T) {
	ctx := context.Background()
	question := "¿A qué hora abren el domingo?"
	uc := &domain.UserContext{CustomerType: "frecuente", UserID: "12345678"}

	t.Run("good answer has sources and no suggestions", func(t *testing.T) {
		engine := &mockEngine{}
		engine.On("AskQuestion", mock.Anything, question, uc).
			Return("Abrimos el domingo de 9:00 a 18:00.", []string{"horarios", "preguntas_frecuentes"},
				domain.AnswerMetadata{QualityScore: 0.9, SourcesUsed: 2})
		c := NewController(&mockStore{}, engine)

		reply, out := c.HandleMessage(ctx, question, activeSession())
		assert.Equal(t, "Abrimos el domingo de 9:00 a 18:00.\n\n📚 *Información obtenida de: horarios, preguntas_frecuentes*", reply)
		assert.Equal(t, StateChatActive, out.State)
		engine.AssertNotCalled(t, "ContextAwareSuggestions", mock.Anything)
	})

	t.Run("weak answer gets at most two suggestions", func(t *testing.T) {
		engine := &mockEngine{}
		engine.On("AskQuestion", mock.Anything, question, uc).
			Return("No tengo esa información.", nil, domain.AnswerMetadata{QualityScore: 0.4})
		engine.On("ContextAwareSuggestions", question).Return([]string{"uno", "dos", "tres"})
		c := NewController(&mockStore{}, engine)

		reply, _ := c.HandleMessage(ctx, question, activeSession())
		assert.Equal(t, "No tengo esa información.\n\n💡 **También podrías preguntar:**\n• uno\n• dos\n", reply)
		assert.NotContains(t, reply, "📚")
	})

	t.Run("score at the threshold gets no suggestions", func(t *testing.T) {
		engine := &mockEngine{}
		engine.On("AskQuestion", mock.Anything, question, uc).
			Return("Abrimos a las 9.", []string{"horarios"}, domain.AnswerMetadata{QualityScore: 0.6, SourcesUsed: 1})
		c := NewController(&mockStore{}, engine)

		reply, _ := c.HandleMessage(ctx, question, activeSession())
		assert.Equal(t, "Abrimos a las 9.\n\n📚 *Información obtenida de: horarios*", reply)
		engine.AssertNotCalled(t, "ContextAwareSuggestions", mock.Anything)
	})

	t.Run("debug footer", func(t *testing.T) {
		engine := &mockEngine{}
		engine.On("AskQuestion", mock.Anything, question, uc).
			Return("Abrimos a las 9.", []string{"horarios"}, domain.AnswerMetadata{QualityScore: 0.75, SourcesUsed: 1})
		c := NewController(&mockStore{}, engine, WithDebugFooter(true))

		reply, _ := c.HandleMessage(ctx, question, activeSession())
		assert.True(t, strings.HasSuffix(reply, "\n\n🔍 *Score: 0.75, Fuentes: 1*"), reply)
	})

	t.Run("capability question skips the engine", func(t *testing.T) {
		engine := &mockEngine{}
		c := NewController(&mockStore{}, engine)

		reply, _ := c.HandleMessage(ctx, "¿Qué puedes hacer?", activeSession())
		assert.True(t, strings.HasPrefix(reply, "¡Hola Ana María Pérez! 🤖 Soy tu asistente virtual"), reply)
		assert.Contains(t, reply, "🕒 **Horarios de Atención**")
		engine.AssertNotCalled(t, "AskQuestion", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("panic becomes an apology", func(t *testing.T) {
		c := NewController(&mockStore{}, panickingEngine{})
		s := activeSession()
		reply, out := c.HandleMessage(ctx, question, s)
		assert.Equal(t, activeChatFailed, reply)
		assert.Equal(t, StateChatActive, out.State)
		assert.Same(t, ana, out.CurrentUser)
	})
}

func TestHandleMessage_UnknownStateResets(t *testing.T) {
	c := NewController(&mockStore{}, &mockEngine{})
	s := &Session{ID: "s-1", State: "limbo", CurrentUser: ana, Pending: Registration{ID: "1234"}}

	reply, out := c.HandleMessage(context.Background(), "hola", s)
	assert.Equal(t, resetPrefix+WelcomeMessage, reply)
	assert.Equal(t, StateWelcome, out.State)
	assert.Nil(t, out.CurrentUser)
	assert.Empty(t, out.Pending.ID)
}

func TestHandleMessage_LogsEveryTurn(t *testing.T) {
	ctx := context.Background()
	engine := &mockEngine{}
	engine.On("AskQuestion", mock.Anything, "¿Qué promociones hay?", mock.Anything).
		Return("Tenemos Suma y Gana con puntos en cada compra del supermercado.", []string{"suma_gana"},
			domain.AnswerMetadata{QualityScore: 0.9, SourcesUsed: 1})
	history := &mockHistory{}
	history.On("LogInteraction", mock.Anything, userstore.Interaction{
		SessionID:   "s-1",
		UserMessage: "",
		BotReply:    WelcomeMessage,
	}).Return(nil).Once()
	history.On("LogInteraction", mock.Anything, mock.MatchedBy(func(in userstore.Interaction) bool {
		return in.UserID == "12345678" && in.QueryType == userstore.QueryPromotions &&
			strings.HasPrefix(in.BotReply, "Tenemos Suma y Gana")
	})).Return(errors.New("database is locked")).Once()
	c := NewController(&mockStore{}, engine, WithInteractionLog(history))

	c.HandleMessage(ctx, "", at(StateWelcome))
	reply, _ := c.HandleMessage(ctx, "¿Qué promociones hay?", activeSession())
	assert.Contains(t, reply, "suma_gana", "a failed log write does not change the reply")
	history.AssertExpectations(t)
}

func TestQueryType(t *testing.T) {
	assert.Equal(t, userstore.QuerySchedule, QueryType("¿A qué hora cierran?"))
	assert.Equal(t, userstore.QueryPromotions, QueryType("¿Hay descuentos?"))
	assert.Equal(t, userstore.QueryGeneral, QueryType("¿Aceptan tarjeta?"))
}

func TestStatusOf(t *testing.T) {
	st := StatusOf(nil)
	assert.Equal(t, StateWelcome, st.State)
	assert.False(t, st.UserAuthenticated)
	assert.Empty(t, st.RegistrationProgress)

	s := at(StateNewUserPhone)
	s.Pending = Registration{ID: "12345678", FullName: "Ana"}
	st = StatusOf(s)
	assert.Equal(t, "📝 Registro - Teléfono", st.StateName)
	assert.Equal(t, map[string]string{"identificacion": "12345678", "nombre_completo": "Ana"}, st.RegistrationProgress)

	st = StatusOf(activeSession())
	assert.True(t, st.UserAuthenticated)
	assert.Same(t, ana, st.CurrentUser)
	assert.Equal(t, "💬 Chat activo", st.StateName)
	assert.Equal(t, "limbo", State("limbo").DisplayName())
}
