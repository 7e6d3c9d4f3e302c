package fsm

// Dialogue events fired against the looplab machine. The persisted states
// themselves live in pkg/store since they are part of the storage contract.
const (
	EventRestartRegistration = "restart_registration"
	EventNameProvided        = "name_provided"
	EventUsernameProvided    = "username_provided"
	EventPasswordProvided    = "password_provided"

	EventGoHome         = "go_home"
	EventStartToday     = "start_today"
	EventStartBackdated = "start_backdated"
	EventYearProvided   = "year_provided"
	EventMonthProvided  = "month_provided"
	EventDayProvided    = "day_provided"
	EventDraftCaptured  = "draft_captured"
	EventConfirmed      = "confirmed"
	EventEditRequested  = "edit_requested"
)

// Callback data tokens carried by inline keyboard buttons.
const (
	CallbackHome           = "home"
	CallbackCancel         = "cancel"
	CallbackProfile        = "profile"
	CallbackLeaderboard    = "leaderboard"
	CallbackSubmitToday    = "submit_today"
	CallbackSubmitOld      = "submit_old"
	CallbackConfirmSubmit  = "confirm_submit"
	CallbackEditSubmission = "edit_submission"
	CallbackLineChart      = "line_chart"
)

// Reserved commands.
const (
	CommandStart = "start"
	CommandUsers = "users"
)

// Button labels.
const (
	ButtonProfile     = "My profile"
	ButtonLeaderboard = "Top 10"
	ButtonSubmitToday = "Today submission"
	ButtonSubmitOld   = "Old date submission"
	ButtonEdit        = "Edit"
	ButtonSubmit      = "Submit"
	ButtonCancel      = "Cancel"
	ButtonHome        = "Home"
	ButtonLineChart   = "Line Chart"
)

// User-facing prompts.
const (
	textWelcome            = "👋 Welcome!\n\nTo start, please enter your Full Name:"
	textAskUsername        = "👤 Nice to meet you, %s!\n\nNow, enter a Username:"
	textAskPassword        = "🔐 Security\n\nPlease create a Password:"
	textRegistrationDone   = "✅ Registration Complete!"
	textHomeMenu           = "🏠 Home Menu"
	textAskYear            = "📅 Enter Year (e.g. 2025):"
	textAskMonth           = "📅 Enter Month (1-12):"
	textAskDay             = "📅 Enter Day (1-31):"
	textAskSubmission      = "📸 Send Photo with Hours in caption."
	textAskSubmissionEdit  = "🔄 Send again:"
	textInvalidYear        = "⚠️ Invalid Year."
	textInvalidMonth       = "⚠️ Invalid Month."
	textInvalidDay         = "⚠️ Invalid Day."
	textNoHoursFound       = "⚠️ No hours found. Try 'Maths 2.5 hours'"
	textConfirmPrompt      = "📝 Confirm?\nHours: %v\nNote: %s"
	textSubmitted          = "✅ Submitted!"
	textSaveError          = "❌ Error saving data."
	textGenericError       = "Something went wrong. Please try again later."
	textUseButtons         = "Please use the buttons or finish the current step."
	textFinishRegistration = "Please finish registration first."
)
