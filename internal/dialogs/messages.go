package dialogs

// Messages is the catalog of texts the bot sends. Entries holding a verb are
// fmt format strings.
type Messages struct {
	Greeting       string `yaml:"greeting"`
	AskName        string `yaml:"ask_name"`
	NiceToMeet     string `yaml:"nice_to_meet"` // %s name
	AskUnit        string `yaml:"ask_unit"`
	OnboardingDone string `yaml:"onboarding_done"`
	Capabilities   string `yaml:"capabilities"`

	MaintenanceDetail  string `yaml:"maintenance_detail"` // %s appliance, %s issue
	MaintenanceGeneric string `yaml:"maintenance_generic"`
	MaintenanceAck     string `yaml:"maintenance_ack"`    // %s yes/no
	MaintenanceLogged  string `yaml:"maintenance_logged"` // %s appliance

	FeedbackReached  string `yaml:"feedback_reached"`  // %d counter
	FeedbackEntities string `yaml:"feedback_entities"` // %s values
	NoneReached      string `yaml:"none_reached"`      // %d counter

	WelcomeBack string `yaml:"welcome_back"` // %s name
	Help        string `yaml:"help"`
	QnAFallback string `yaml:"qna_fallback"`
	Apology     string `yaml:"apology"`
}

// DefaultMessages returns the built-in catalog.
func DefaultMessages() Messages {
	return Messages{
		Greeting:       "Hello 👋 , I'm HomeBot!",
		AskName:        "What should I call you?",
		NiceToMeet:     "Very nice to meet you %s!",
		AskUnit:        "Which unit are you in?",
		OnboardingDone: "Perfect.  That's all the information I need.",
		Capabilities:   "I'm here to help with reporting issues, taking feedback and/or complaints, and answering questions about your home and the property.",

		MaintenanceDetail:  "I understand your %s requires maintenance for an issue described as: '%s'. Is this correct?",
		MaintenanceGeneric: "I understand you require maintenance. Is this correct?",
		MaintenanceAck:     "Thanks for replying with: %s",
		MaintenanceLogged:  "I've logged a maintenance request for your %s.",

		FeedbackReached:  "%d: You reached the \"property_feedback\" dialog.",
		FeedbackEntities: "Found these \"appliances\" entities:\n%s",
		NoneReached:      "%d: You reached the \"None\" dialog.",

		WelcomeBack: "Welcome back %s!",
		Help:        "Hi! I'm HomeBot. Tell me about a maintenance issue, give feedback about your home, or ask a question about the property.",
		QnAFallback: "I couldn't find an answer to that. Please contact the property office for help.",
		Apology:     "Sorry, I'm having trouble understanding you right now. Please try again in a moment.",
	}
}

// Merge returns m with every empty entry taken from base.
func (m Messages) Merge(base Messages) Messages {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return Messages{
		Greeting:           pick(m.Greeting, base.Greeting),
		AskName:            pick(m.AskName, base.AskName),
		NiceToMeet:         pick(m.NiceToMeet, base.NiceToMeet),
		AskUnit:            pick(m.AskUnit, base.AskUnit),
		OnboardingDone:     pick(m.OnboardingDone, base.OnboardingDone),
		Capabilities:       pick(m.Capabilities, base.Capabilities),
		MaintenanceDetail:  pick(m.MaintenanceDetail, base.MaintenanceDetail),
		MaintenanceGeneric: pick(m.MaintenanceGeneric, base.MaintenanceGeneric),
		MaintenanceAck:     pick(m.MaintenanceAck, base.MaintenanceAck),
		MaintenanceLogged:  pick(m.MaintenanceLogged, base.MaintenanceLogged),
		FeedbackReached:    pick(m.FeedbackReached, base.FeedbackReached),
		FeedbackEntities:   pick(m.FeedbackEntities, base.FeedbackEntities),
		NoneReached:        pick(m.NoneReached, base.NoneReached),
		WelcomeBack:        pick(m.WelcomeBack, base.WelcomeBack),
		Help:               pick(m.Help, base.Help),
		QnAFallback:        pick(m.QnAFallback, base.QnAFallback),
		Apology:            pick(m.Apology, base.Apology),
	}
}
