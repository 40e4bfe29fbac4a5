package conversation

import (
	"github.com/google/uuid"

	"retailbot/internal/domain"
)

// State is a step of the conversation.
type State string

const (
	StateWelcome          State = "welcome"
	StateIdentifyUserType State = "identify_user_type"
	StateExistingUserID   State = "existing_user_id"
	StateNewUserID        State = "new_user_id"
	StateNewUserName      State = "new_user_name"
	StateNewUserPhone     State = "new_user_phone"
	StateNewUserEmail     State = "new_user_email"
	StateChatActive       State = "chat_active"
)

var stateNames = map[State]string{
	StateWelcome:          "🏠 Bienvenida",
	StateIdentifyUserType: "👤 Identificando tipo de usuario",
	StateExistingUserID:   "🔍 Validando usuario existente",
	StateNewUserID:        "📝 Registro - Identificación",
	StateNewUserName:      "📝 Registro - Nombre",
	StateNewUserPhone:     "📝 Registro - Teléfono",
	StateNewUserEmail:     "📝 Registro - Email",
	StateChatActive:       "💬 Chat activo",
}

// DisplayName is the label shown in status views. Unknown states show as is.
func (s State) DisplayName() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return string(s)
}

// Registration holds the signup fields collected so far.
type Registration struct {
	ID       string `json:"identificacion,omitempty"`
	FullName string `json:"nombre_completo,omitempty"`
	Phone    string `json:"telefono,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Progress returns the collected fields keyed by their customer-facing names.
func (r Registration) Progress() map[string]string {
	out := map[string]string{}
	for k, v := range map[string]string{
		"identificacion":  r.ID,
		"nombre_completo": r.FullName,
		"telefono":        r.Phone,
		"email":           r.Email,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Session is the caller-owned conversation record, round-tripped every turn.
type Session struct {
	ID          string       `json:"session_id"`
	State       State        `json:"conversation_state"`
	Pending     Registration `json:"user_data"`
	CurrentUser *domain.User `json:"current_user"`
}

// NewSession starts a conversation at the welcome step.
func NewSession() *Session {
	return &Session{ID: uuid.NewString(), State: StateWelcome}
}

func (s *Session) reset() {
	s.State = StateWelcome
	s.Pending = Registration{}
	s.CurrentUser = nil
}

// Status summarises a session for display.
type Status struct {
	State                State             `json:"state"`
	StateName            string            `json:"state_name"`
	UserAuthenticated    bool              `json:"user_authenticated"`
	CurrentUser          *domain.User      `json:"current_user"`
	RegistrationProgress map[string]string `json:"registration_progress"`
}

// StatusOf reports where a session stands. A nil session or one without a
// state reads as a fresh welcome.
func StatusOf(s *Session) Status {
	if s == nil {
		s = &Session{}
	}
	state := s.State
	if state == "" {
		state = StateWelcome
	}
	return Status{
		State:                state,
		StateName:            state.DisplayName(),
		UserAuthenticated:    s.CurrentUser != nil,
		CurrentUser:          s.CurrentUser,
		RegistrationProgress: s.Pending.Progress(),
	}
}
