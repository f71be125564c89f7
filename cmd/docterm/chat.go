package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"docterm/cmd/docterm/config"
	"docterm/cmd/docterm/ui"
	"docterm/internal/api"
	"docterm/internal/conversation"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// viewMode selects which screen the model is showing.
type viewMode int

const (
	modeAuth viewMode = iota
	modeChat
)

type chatModel struct {
	// UI Components
	textinput textinput.Model
	username  textinput.Model
	password  textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	styles    ui.Styles
	renderer  *glamour.TermRenderer

	// State
	mode          viewMode
	registerForm  bool // auth screen toggles between login and register
	passwordFocus bool
	isLoading     bool
	err           error
	notice        string
	pendingDelete string
	searchOnline  bool
	width         int
	height        int
	ready         bool
	cfg           config.Config

	// Backend
	app *app
}

// Messages for tea updates
type (
	authDoneMsg    struct{ username string }
	registeredMsg  struct{ username string }
	resumeDoneMsg  struct{}
	exchangeMsg    struct{}
	switchedMsg    struct{ id string }
	refreshedMsg   struct{}
	uploadedMsg    api.Document
	noticeMsg      string
	errorMsg       error
	sessionLostMsg error
)

// initChat initializes the interactive chat model
func initChat(a *app) chatModel {
	styles := ui.NewStyles(ui.ThemeFromName(a.cfg.Theme))

	ti := textinput.New()
	ti.Placeholder = "Ask about your documents... (Enter to send, /help for commands)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 4096
	ti.Width = 80
	ti.PromptStyle = styles.Prompt
	ti.TextStyle = styles.Body

	userIn := textinput.New()
	userIn.Placeholder = "username"
	userIn.Prompt = "│ "
	userIn.CharLimit = 128
	userIn.Width = 40
	userIn.Focus()

	passIn := textinput.New()
	passIn.Placeholder = "password"
	passIn.Prompt = "│ "
	passIn.CharLimit = 128
	passIn.Width = 40
	passIn.EchoMode = textinput.EchoPassword
	passIn.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)
	vp.SetContent("")

	var renderer *glamour.TermRenderer
	if styles.Theme.IsDark {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
	} else {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("light"),
			glamour.WithWordWrap(80),
		)
	}

	mode := modeAuth
	if a.sessions.Authenticated() {
		mode = modeChat
	}

	return chatModel{
		textinput: ti,
		username:  userIn,
		password:  passIn,
		viewport:  vp,
		spinner:   sp,
		styles:    styles,
		renderer:  renderer,
		mode:      mode,
		cfg:       a.cfg,
		app:       a,
	}
}

func (m chatModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.mode == modeChat {
		cmds = append(cmds, m.resumeCmd())
	}
	return tea.Batch(cmds...)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyEsc:
			if m.mode == modeChat {
				return m, tea.Quit
			}

		case tea.KeyTab, tea.KeyShiftTab:
			if m.mode == modeAuth {
				m.togglePasswordFocus()
				return m, nil
			}

		case tea.KeyCtrlR:
			if m.mode == modeAuth {
				m.registerForm = !m.registerForm
				m.err = nil
				return m, nil
			}

		case tea.KeyEnter:
			if m.isLoading {
				return m, nil
			}
			if m.mode == modeAuth {
				return m.handleAuthSubmit()
			}
			return m.handleSubmit()
		}

		if !m.isLoading {
			if m.mode == modeAuth {
				if m.passwordFocus {
					m.password, tiCmd = m.password.Update(msg)
				} else {
					m.username, tiCmd = m.username.Update(msg)
				}
			} else {
				m.textinput, tiCmd = m.textinput.Update(msg)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		footerHeight := 3
		inputHeight := 3

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-headerHeight-footerHeight-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - headerHeight - footerHeight - inputHeight
		}

		m.textinput.Width = msg.Width - 4

		if m.renderer != nil {
			m.renderer, _ = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(msg.Width-8),
			)
		}
		m.syncViewport()

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
			// The optimistic entry lands in the log as soon as a send
			// begins; re-render each tick so it shows mid-flight.
			if m.mode == modeChat {
				m.syncViewport()
			}
			return m, spCmd
		}

	case authDoneMsg:
		m.isLoading = false
		m.err = nil
		m.mode = modeChat
		m.password.Reset()
		m.notice = fmt.Sprintf("Logged in as %s", msg.username)
		return m, tea.Batch(m.spinner.Tick, m.resumeCmd())

	case registeredMsg:
		// Account creation does not sign in; flip back to the login
		// form with the username kept.
		m.isLoading = false
		m.err = nil
		m.registerForm = false
		m.password.Reset()
		m.notice = fmt.Sprintf("Account created for %s, log in to continue", msg.username)

	case resumeDoneMsg, exchangeMsg, refreshedMsg:
		m.isLoading = false
		m.err = nil
		m.syncViewport()
		m.viewport.GotoBottom()

	case switchedMsg:
		m.isLoading = false
		m.err = nil
		m.notice = fmt.Sprintf("Switched to conversation %s", msg.id)
		m.syncViewport()
		m.viewport.GotoBottom()

	case uploadedMsg:
		m.isLoading = false
		m.err = nil
		m.notice = fmt.Sprintf("Uploaded %s", msg.Name)
		m.syncViewport()

	case noticeMsg:
		m.isLoading = false
		m.notice = string(msg)
		m.syncViewport()

	case sessionLostMsg:
		// The transport saw a rejection and the session is already
		// torn down; fall back to the login screen.
		m.isLoading = false
		m.mode = modeAuth
		m.passwordFocus = false
		m.username.Focus()
		m.err = msg

	case errorMsg:
		m.isLoading = false
		var authErr *api.AuthError
		if errors.As(msg, &authErr) && !m.app.sessions.Authenticated() {
			return m, func() tea.Msg { return sessionLostMsg(msg) }
		}
		m.err = msg
		m.syncViewport()
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *chatModel) togglePasswordFocus() {
	m.passwordFocus = !m.passwordFocus
	if m.passwordFocus {
		m.username.Blur()
		m.password.Focus()
	} else {
		m.password.Blur()
		m.username.Focus()
	}
}

// handleAuthSubmit drives the login/register form. Enter on the
// username field moves to the password field; enter on the password
// field submits.
func (m chatModel) handleAuthSubmit() (tea.Model, tea.Cmd) {
	if !m.passwordFocus {
		m.togglePasswordFocus()
		return m, nil
	}

	username := strings.TrimSpace(m.username.Value())
	password := m.password.Value()
	if username == "" || password == "" {
		m.err = fmt.Errorf("username and password are required")
		return m, nil
	}

	m.isLoading = true
	m.err = nil
	register := m.registerForm
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if register {
			if err := m.app.sessions.Register(ctx, username, password); err != nil {
				return errorMsg(err)
			}
			return registeredMsg{username: username}
		}
		if err := m.app.sessions.Login(ctx, username, password); err != nil {
			return errorMsg(err)
		}
		return authDoneMsg{username: username}
	})
}

func (m chatModel) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textinput.Value())
	if input == "" {
		return m, nil
	}

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	m.textinput.Reset()
	m.notice = ""
	m.err = nil
	m.isLoading = true

	online := m.searchOnline
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := m.app.registry.Send(ctx, input, online); err != nil {
			return errorMsg(err)
		}
		return exchangeMsg{}
	})
}

func (m chatModel) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]
	m.textinput.Reset()
	m.notice = ""
	m.err = nil

	if cmd != "/delete" {
		m.pendingDelete = ""
	}

	switch cmd {
	case "/quit", "/exit", "/q":
		return m, tea.Quit

	case "/help":
		m.notice = helpText
		return m, nil

	case "/web":
		m.searchOnline = !m.searchOnline
		if m.searchOnline {
			m.notice = "Web search enabled for new messages"
		} else {
			m.notice = "Web search disabled"
		}
		return m, nil

	case "/new":
		m.app.registry.StartNew()
		m.syncViewport()
		m.notice = "Started a new conversation"
		return m, nil

	case "/chats":
		return m.runAsync(func(ctx context.Context) (tea.Msg, error) {
			if err := m.app.registry.Refresh(ctx); err != nil {
				return nil, err
			}
			return noticeMsg(m.formatConversationList()), nil
		})

	case "/switch":
		if len(parts) < 2 {
			m.notice = "Usage: /switch <number|id>"
			return m, nil
		}
		id, err := m.resolveConversationArg(parts[1])
		if err != nil {
			m.err = err
			return m, nil
		}
		return m.runAsync(func(ctx context.Context) (tea.Msg, error) {
			if err := m.app.registry.SwitchTo(ctx, id); err != nil {
				return nil, err
			}
			return switchedMsg{id: id}, nil
		})

	case "/delete":
		if len(parts) < 2 {
			m.notice = "Usage: /delete <number|id>"
			return m, nil
		}
		id, err := m.resolveConversationArg(parts[1])
		if err != nil {
			m.err = err
			return m, nil
		}
		if m.pendingDelete != id {
			m.pendingDelete = id
			m.notice = fmt.Sprintf("Run the same /delete again to confirm removing %s", id)
			return m, nil
		}
		m.pendingDelete = ""
		return m.runAsync(func(ctx context.Context) (tea.Msg, error) {
			if err := m.app.registry.Delete(ctx, id); err != nil {
				return nil, err
			}
			return noticeMsg(fmt.Sprintf("Deleted conversation %s", id)), nil
		})

	case "/clear":
		return m.runAsync(func(ctx context.Context) (tea.Msg, error) {
			if err := m.app.registry.ClearHistory(ctx); err != nil {
				return nil, err
			}
			return noticeMsg("History cleared"), nil
		})

	case "/docs":
		m.notice = m.formatDocumentList()
		return m, nil

	case "/upload":
		if len(parts) < 2 {
			m.notice = "Usage: /upload <path>  (accepted: " + conversation.PickerExtensions + ")"
			return m, nil
		}
		path := strings.TrimSpace(strings.TrimPrefix(input, "/upload"))
		return m.runUpload(path)

	case "/undoc":
		return m.runAsync(func(ctx context.Context) (tea.Msg, error) {
			if err := m.app.registry.Documents().RemoveLast(ctx); err != nil {
				return nil, err
			}
			return noticeMsg("Removed the most recent document"), nil
		})

	case "/rmdoc":
		if len(parts) < 2 {
			m.notice = "Usage: /rmdoc <id>"
			return m, nil
		}
		docID := parts[1]
		return m.runAsync(func(ctx context.Context) (tea.Msg, error) {
			if err := m.app.registry.Documents().RemoveByID(ctx, docID); err != nil {
				return nil, err
			}
			return noticeMsg(fmt.Sprintf("Removed document %s", docID)), nil
		})

	case "/rate":
		return m.runRate(parts[1:])

	case "/logout":
		return m.runLogoutCmd()

	default:
		m.notice = fmt.Sprintf("Unknown command %s. Try /help.", cmd)
		return m, nil
	}
}

// runAsync wraps a backend call in the standard loading/spinner dance.
func (m chatModel) runAsync(fn func(ctx context.Context) (tea.Msg, error)) (tea.Model, tea.Cmd) {
	m.isLoading = true
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		out, err := fn(ctx)
		if err != nil {
			return errorMsg(err)
		}
		return out
	})
}

func init() {
	// The builtin extension table only covers web types; the office
	// formats the backend accepts have to be registered by hand.
	_ = mime.AddExtensionType(".txt", "text/plain")
	_ = mime.AddExtensionType(".csv", "text/csv")
	_ = mime.AddExtensionType(".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	_ = mime.AddExtensionType(".xls", "application/vnd.ms-excel")
	_ = mime.AddExtensionType(".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

// mediaTypeForPath infers the declared media type from the file
// extension, without any charset suffix.
func mediaTypeForPath(path string) string {
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	return mediaType
}

func (m chatModel) runUpload(path string) (tea.Model, tea.Cmd) {
	mediaType := mediaTypeForPath(path)
	name := filepath.Base(path)

	return m.runAsync(func(ctx context.Context) (tea.Msg, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		doc, err := m.app.registry.Upload(ctx, name, mediaType, f)
		if err != nil {
			return nil, err
		}
		return uploadedMsg(doc), nil
	})
}

// runRate handles "/rate <n> up|down [comment]" where n counts
// assistant replies from the top of the current conversation.
func (m chatModel) runRate(args []string) (tea.Model, tea.Cmd) {
	if len(args) < 2 {
		m.notice = "Usage: /rate <number> up|down [comment]"
		return m, nil
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		m.err = fmt.Errorf("message number must be a positive integer")
		return m, nil
	}
	msgs := m.app.registry.Engine().Messages()
	if n > len(msgs) {
		m.err = fmt.Errorf("no message %d in this conversation", n)
		return m, nil
	}
	target := msgs[n-1]
	if target.MessageID == "" {
		m.err = fmt.Errorf("message %d cannot be rated yet", n)
		return m, nil
	}

	feedbackType := ""
	switch strings.ToLower(args[1]) {
	case "up":
		feedbackType = api.FeedbackThumbsUp
	case "down":
		feedbackType = api.FeedbackThumbsDown
	default:
		m.notice = "Usage: /rate <number> up|down [comment]"
		return m, nil
	}
	detail := strings.Join(args[2:], " ")

	return m.runAsync(func(ctx context.Context) (tea.Msg, error) {
		if err := m.app.registry.Feedback().Submit(ctx, target.MessageID, feedbackType, detail); err != nil {
			return nil, err
		}
		return noticeMsg(fmt.Sprintf("Rated message %d", n)), nil
	})
}

func (m chatModel) runLogoutCmd() (tea.Model, tea.Cmd) {
	m.isLoading = true
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		m.app.sessions.Logout(ctx)
		m.app.registry.StartNew()
		return sessionLostMsg(errors.New("logged out"))
	})
}

func (m chatModel) resumeCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := m.app.registry.Resume(ctx); err != nil {
			return errorMsg(err)
		}
		return resumeDoneMsg{}
	}
}

// resolveConversationArg accepts either a 1-based index into the
// current list or a raw conversation id.
func (m chatModel) resolveConversationArg(arg string) (string, error) {
	convs := m.app.registry.List()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(convs) {
			return "", fmt.Errorf("no conversation %d; run /chats first", n)
		}
		return convs[n-1].ID, nil
	}
	for _, c := range convs {
		if c.ID == arg {
			return arg, nil
		}
	}
	// Unknown ids go through anyway; the backend owns the namespace.
	return arg, nil
}

func (m chatModel) formatConversationList() string {
	convs := m.app.registry.List()
	if len(convs) == 0 {
		return "No conversations yet"
	}
	active := m.app.registry.ActiveID()
	var sb strings.Builder
	sb.WriteString("Conversations:\n")
	for i, c := range convs {
		marker := "  "
		if c.ID == active {
			marker = "▸ "
		}
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&sb, "%s%d. %s  %s\n", marker, i+1, title, m.styles.Muted.Render(c.ID))
	}
	sb.WriteString("Use /switch <number> to open one")
	return sb.String()
}

func (m chatModel) formatDocumentList() string {
	docs := m.app.registry.Documents().Documents()
	if len(docs) == 0 {
		return "No documents attached to this conversation"
	}
	var sb strings.Builder
	sb.WriteString("Documents:\n")
	for _, d := range docs {
		fmt.Fprintf(&sb, "  %s  %s\n", d.Name, m.styles.Muted.Render(d.ID))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *chatModel) syncViewport() {
	m.viewport.SetContent(m.renderHistory())
}

func (m chatModel) renderHistory() string {
	msgs := m.app.registry.Engine().Messages()
	if len(msgs) == 0 {
		return m.styles.Muted.Render("Start a conversation, or /upload a document first.")
	}

	var sb strings.Builder
	for _, msg := range msgs {
		userStyle := m.styles.Bold.
			Foreground(m.styles.Theme.Primary).
			MarginTop(1)
		sb.WriteString(userStyle.Render("You") + "\n")
		sb.WriteString(m.styles.Body.Render(msg.User))
		sb.WriteString("\n\n")

		assistantStyle := m.styles.Bold.
			Foreground(m.styles.Theme.Accent).
			MarginTop(1)
		sb.WriteString(assistantStyle.Render("Assistant") + m.feedbackBadge(msg.MessageID) + "\n")

		if msg.Pending() {
			sb.WriteString(m.styles.Muted.Render("…"))
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(m.safeRenderMarkdown(msg.Assistant))
		sb.WriteString("\n")

		if len(msg.References) > 0 {
			refs := "Sources: " + strings.Join(msg.References, ", ")
			sb.WriteString(m.styles.Muted.Render(refs))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (m chatModel) feedbackBadge(messageID string) string {
	if messageID == "" {
		return ""
	}
	fb, ok := m.app.registry.Feedback().Get(messageID)
	if !ok {
		return ""
	}
	switch fb.FeedbackType {
	case api.FeedbackThumbsUp:
		return "  " + m.styles.Success.Render("▲")
	case api.FeedbackThumbsDown:
		return "  " + m.styles.Error.Render("▼")
	}
	return ""
}

// safeRenderMarkdown renders markdown with panic recovery
func (m chatModel) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

func (m chatModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.mode == modeAuth {
		return m.renderAuthView()
	}

	header := m.renderHeader()

	chatView := lipgloss.NewStyle().Padding(1, 2).Render(m.viewport.View())

	if m.isLoading {
		chatView += "\n" + m.styles.Spinner.Render(m.spinner.View()) + " Working..."
	}
	if m.notice != "" {
		chatView += "\n" + m.styles.Info.Render(m.notice)
	}
	if m.err != nil {
		chatView += "\n" + m.styles.Error.Render("Error: "+m.err.Error())
	}

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Accent).
		Padding(0, 1)
	inputArea := inputStyle.Render(m.textinput.View())

	footer := m.renderFooter()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		chatView,
		inputArea,
		footer,
	)
}

func (m chatModel) renderAuthView() string {
	title := "Log in"
	hint := "Ctrl+R: switch to register"
	if m.registerForm {
		title = "Create an account"
		hint = "Ctrl+R: switch to login"
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("docterm") + "\n")
	sb.WriteString(m.styles.Subtitle.Render(title) + "\n\n")
	sb.WriteString(m.username.View() + "\n")
	sb.WriteString(m.password.View() + "\n\n")

	if m.isLoading {
		sb.WriteString(m.styles.Spinner.Render(m.spinner.View()) + " Authenticating...\n")
	}
	if m.notice != "" {
		sb.WriteString(m.styles.Info.Render(m.notice) + "\n")
	}
	if m.err != nil {
		sb.WriteString(m.styles.Error.Render(m.err.Error()) + "\n")
	}
	sb.WriteString(m.styles.Muted.Render("Tab: next field • Enter: submit • " + hint + " • Ctrl+C: exit"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Border).
		Padding(1, 3).
		Render(sb.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m chatModel) renderHeader() string {
	title := m.styles.Header.Render(" docterm ")

	who := ""
	if id := m.app.sessions.CurrentIdentity(); id != nil {
		who = m.styles.Muted.Render(" " + id.Username)
	}

	convLabel := "new conversation"
	if active := m.app.registry.ActiveID(); active != "" {
		convLabel = active
		for _, c := range m.app.registry.List() {
			if c.ID == active && c.Title != "" {
				convLabel = c.Title
				break
			}
		}
	}
	conv := m.styles.Badge.Render(convLabel)

	var status string
	if m.isLoading {
		status = m.styles.Warning.Render("● Working")
	} else {
		status = m.styles.Success.Render("● Ready")
	}

	web := ""
	if m.searchOnline {
		web = "  " + m.styles.Info.Render("web")
	}

	headerLine := lipgloss.JoinHorizontal(
		lipgloss.Center,
		title,
		" ",
		conv,
		"  ",
		status,
		web,
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerLine,
		who,
		m.styles.RenderDivider(m.width),
	)
}

func (m chatModel) renderFooter() string {
	docCount := len(m.app.registry.Documents().Documents())
	docLabel := ""
	if docCount > 0 {
		docLabel = fmt.Sprintf("📎 %d • ", docCount)
	}
	help := m.styles.Muted.Render(docLabel + "Enter: send • /help: commands • Ctrl+C: exit")
	return lipgloss.NewStyle().
		MarginTop(1).
		Render(help)
}

const helpText = `Commands:
  /new                      start a new conversation
  /chats                    list conversations
  /switch <number|id>       open a conversation
  /delete <number|id>       delete a conversation (asks to confirm)
  /clear                    wipe the current conversation's history
  /docs                     list attached documents
  /upload <path>            attach a document
  /undoc                    remove the most recent document
  /rmdoc <id>               remove a document by id
  /rate <n> up|down [text]  rate a reply
  /web                      toggle web search
  /logout                   end the session
  /quit                     exit`

func runInteractiveChat() error {
	a, err := newApp()
	if err != nil {
		return err
	}

	p := tea.NewProgram(
		initChat(a),
		tea.WithAltScreen(),
	)

	_, err = p.Run()
	return err
}
