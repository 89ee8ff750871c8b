package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/spf13/cobra"

	"jitdasm"
	"jitdasm/internal/ui/colorize"
)

type viewMode int

const (
	viewSymbols viewMode = iota
	viewListing
)

type symbolItem struct {
	sym jitdasm.Symbol
}

func (i symbolItem) Title() string       { return fmt.Sprintf("%x  %s", i.sym.Start, i.sym.Name) }
func (i symbolItem) Description() string { return "" }
func (i symbolItem) FilterValue() string { return i.sym.Name }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(symbolItem)
	if !ok {
		return
	}
	indicator := " "
	addrStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if index == m.Index() {
		indicator = ">"
		addrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	}
	sizeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	fmt.Fprintf(w, " %s  %s %s  %s",
		indicator,
		addrStyle.Render(fmt.Sprintf("%016x", i.sym.Start)),
		sizeStyle.Render(fmt.Sprintf("%6d", i.sym.Size)),
		i.sym.Name)
}

// disassembleFunc produces the text shown for a symbol.
type disassembleFunc func(jitdasm.Symbol) (string, error)

type browseModel struct {
	symbols     list.Model
	listing     viewport.Model
	mode        viewMode
	disassemble disassembleFunc
	current     string
	width       int
	height      int
}

func newBrowseModel(syms []jitdasm.Symbol, disassemble disassembleFunc) browseModel {
	items := make([]list.Item, 0, len(syms))
	for _, sym := range syms {
		items = append(items, symbolItem{sym: sym})
	}
	l := list.New(items, itemDelegate{}, 80, 24)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Title = "Symbols"
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		MarginLeft(2)

	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(22)

	return browseModel{
		symbols:     l,
		listing:     vp,
		disassemble: disassemble,
		width:       80,
		height:      24,
	}
}

func (m browseModel) Init() tea.Cmd { return nil }

// open disassembles the selected symbol and switches to the listing.
func (m *browseModel) open() {
	item, ok := m.symbols.SelectedItem().(symbolItem)
	if !ok {
		return
	}
	text, err := m.disassemble(item.sym)
	if err != nil {
		slog.Warn("Cannot disassemble symbol", "name", item.sym.Name, "error", err)
		text = fmt.Sprintf("%s: %v\n", item.sym.Name, err)
	}
	m.current = item.sym.Name
	m.listing.SetContent(text)
	m.listing.GotoTop()
	m.mode = viewListing
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.symbols.SetWidth(msg.Width)
		m.symbols.SetHeight(msg.Height - 1)
		m.listing.SetWidth(msg.Width)
		m.listing.SetHeight(msg.Height - 2)
		return m, nil

	case tea.KeyMsg:
		if m.mode == viewSymbols && m.symbols.FilterState() == list.Filtering {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if m.mode == viewSymbols {
				m.open()
				return m, nil
			}
		case "esc", "backspace", "tab":
			if m.mode == viewListing {
				m.mode = viewSymbols
				return m, nil
			}
		}
	}

	switch m.mode {
	case viewListing:
		m.listing, cmd = m.listing.Update(msg)
	default:
		m.symbols, cmd = m.symbols.Update(msg)
	}
	return m, cmd
}

func (m browseModel) View() string {
	if m.mode == viewSymbols {
		return m.symbols.View()
	}
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("99")).MarginLeft(2)
	menuStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1).
		Width(m.width)
	return headerStyle.Render(m.current) + "\n" +
		m.listing.View() + "\n" +
		menuStyle.Render(" Esc: symbols • ↑/↓: scroll • Q: quit ")
}

// regionDisassembler disassembles a listed symbol at its own address, so
// symbols sharing a name each show their code.
func regionDisassembler(d *jitdasm.Disassembler, s settings) disassembleFunc {
	return func(sym jitdasm.Symbol) (string, error) {
		l, err := d.DisassembleRegion(sym.Name, jitdasm.Region{Start: sym.Start, Len: sym.Size})
		if err != nil {
			return "", err
		}
		if s.cfg.NoColor {
			return l.String(), nil
		}
		return colorize.Listing(l, s.style.Syntax), nil
	}
}

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse and disassemble the functions of the target process",
		Example: `
# Browse this process
jitdasm browse

# Browse another process
jitdasm browse -p 4242
  `,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			d := s.disassembler()
			defer d.Close()

			syms, err := d.Symbols()
			if err != nil {
				return err
			}
			model := newBrowseModel(filterSymbols(syms, nil), regionDisassembler(d, s))

			program := tea.NewProgram(
				model,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := program.Run(); err != nil {
				slog.Error("TUI run error", "error", err)
				return fmt.Errorf("TUI error: %v", err)
			}
			return nil
		},
	}
	return cmd
}
