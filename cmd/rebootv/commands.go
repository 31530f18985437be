package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/rebootv/internal/domain"
	"github.com/mmcdole/rebootv/internal/store"
	"github.com/mmcdole/rebootv/internal/tui/styles"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// refreshTimeout bounds how long a CLI refresh waits for completion
const refreshTimeout = 2 * time.Minute

// withStore opens the app, runs fn with a store that prints its
// notifications to stderr, and closes everything after. An error
// notification raised during fn becomes the command's error.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, a *app, s *store.Store) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	notes := &printNotifier{w: cmd.ErrOrStderr()}
	s := a.newStore(notes)
	a.failed = notes.Err
	if err := fn(cmd.Context(), a, s); err != nil {
		return err
	}
	return notes.Err()
}

func playlistsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "playlists",
		Aliases: []string{"playlist"},
		Short:   "Manage playlists",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List playlists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, a *app, s *store.Store) error {
				s.FetchPlaylists(ctx)
				printPlaylists(cmd.OutOrStdout(), s.Playlists().Get())
				return nil
			})
		},
	}

	var input domain.PlaylistInput
	var playlistType string
	addCmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a playlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Name, input.URL = args[0], args[1]
			input.Type = domain.PlaylistType(playlistType)
			if input.Username != "" && input.Password == "" {
				password, err := readPassword(cmd)
				if err != nil {
					return err
				}
				input.Password = password
			}
			return withStore(cmd, func(ctx context.Context, a *app, s *store.Store) error {
				return awaitRefresh(ctx, a, func() { s.AddPlaylist(ctx, input) })
			})
		},
	}
	addCmd.Flags().StringVar(&playlistType, "type", string(domain.PlaylistTypeM3U), "playlist type (xtream, m3u, stalker)")
	addCmd.Flags().StringVar(&input.Username, "username", "", "provider username")
	addCmd.Flags().StringVar(&input.Password, "password", "", "provider password (prompted when omitted)")
	addCmd.Flags().StringVar(&input.MacAddress, "mac", "", "MAC address for stalker portals")
	addCmd.Flags().IntVar(&input.MaxConnections, "max-connections", 0, "maximum concurrent connections")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: withPlaylistID(func(ctx context.Context, s *store.Store, id int64) {
			s.DeletePlaylist(ctx, id)
		}),
	}

	activateCmd := &cobra.Command{
		Use:   "activate <id>",
		Short: "Toggle whether a playlist is active",
		Args:  cobra.ExactArgs(1),
		RunE: withPlaylistID(func(ctx context.Context, s *store.Store, id int64) {
			s.FetchPlaylists(ctx)
			s.TogglePlaylistActive(ctx, id)
		}),
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh [id]",
		Short: "Refresh one playlist, or all active playlists",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, a *app, s *store.Store) error {
				start := func() { s.RefreshAllPlaylists(ctx, true) }
				if len(args) == 1 {
					id, err := parseID(args[0])
					if err != nil {
						return err
					}
					start = func() { s.RefreshPlaylist(ctx, id) }
				}
				if err := awaitRefresh(ctx, a, start); err != nil {
					return err
				}

				s.FetchPlaylists(ctx)
				printPlaylists(cmd.OutOrStdout(), s.Playlists().Get())
				return nil
			})
		},
	}

	cmd.AddCommand(listCmd, addCmd, deleteCmd, activateCmd, refreshCmd)
	return cmd
}

// awaitRefresh runs start and waits for the refresh it triggers to
// complete. The backend abandons refreshes still running when it closes.
func awaitRefresh(ctx context.Context, a *app, start func()) error {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	done, unsubscribe := a.subscribeOnce(domain.EventRefreshComplete)
	defer unsubscribe()

	start()
	if err := a.failed(); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("refresh did not complete: %w", ctx.Err())
	}
}

func withPlaylistID(fn func(ctx context.Context, s *store.Store, id int64)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, a *app, s *store.Store) error {
			fn(ctx, s, id)
			return nil
		})
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid playlist id %q", arg)
	}
	return id, nil
}

// readPassword prompts for a password without echo when stdin is a
// terminal, and reads one line otherwise
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func channelsCommand() *cobra.Command {
	var (
		search    string
		page      int
		favorites bool
		hidden    bool
		category  int64
		sort      string
	)

	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order := domain.SortOrder(sort)
			switch order {
			case domain.SortDefault, domain.SortAscending, domain.SortDescending:
			default:
				return fmt.Errorf("invalid sort %q (want default, asc or desc)", sort)
			}

			return withStore(cmd, func(ctx context.Context, a *app, s *store.Store) error {
				kind := domain.KindChannels
				if favorites {
					kind = domain.KindFavoriteChannels
				}
				opts := s.OptionsFor(kind).WithSort(order, domain.SortByName)
				opts.Page = max(page, 1)
				opts.SearchTerm = search
				opts.ShowHidden = hidden
				if category > 0 {
					opts.Filter.CategoryID = &category
					if !favorites {
						opts.Filter.Type = domain.FilterCategory
					}
				}

				s.FetchChannels(ctx, opts, false)
				if msg := s.Error(kind).Get(); msg != "" {
					return errors.New(msg)
				}

				var p domain.Page[domain.Channel]
				if favorites {
					p = s.FavoriteChannels().Get()
				} else {
					p = s.Channels().Get()
				}
				printChannels(cmd.OutOrStdout(), p, opts.Page)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "search term")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "only favorite channels")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "include hidden channels")
	cmd.Flags().Int64Var(&category, "category", 0, "category id")
	cmd.Flags().StringVar(&sort, "sort", string(domain.SortDefault), "sort by name (default, asc, desc)")
	return cmd
}

func exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export favorites, history, playlists and settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, a *app, s *store.Store) error {
				s.ExportUserData(ctx, path)
				return nil
			})
		},
	}
}

func importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace user data with an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, a *app, s *store.Store) error {
				s.ImportUserData(ctx, path)
				return nil
			})
		},
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Accent)
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

func printPlaylists(w io.Writer, playlists []domain.Playlist) {
	if len(playlists) == 0 {
		fmt.Fprintln(w, styles.DimStyle.Render("No playlists."))
		return
	}

	rows := [][]string{{"ID", "NAME", "TYPE", "STATUS", "ACTIVE", "UPDATED"}}
	for _, p := range playlists {
		status := string(p.Status)
		if p.ErrorMessage != "" {
			status += ": " + p.ErrorMessage
		}
		updated := "-"
		if p.LastUpdated != nil {
			updated = p.LastUpdated.Local().Format(time.DateTime)
		}
		active := ""
		if p.IsActive {
			active = "yes"
		}
		rows = append(rows, []string{strconv.FormatInt(p.ID, 10), p.Name, string(p.Type), status, active, updated})
	}
	printTable(w, rows)
}

func printChannels(w io.Writer, p domain.Page[domain.Channel], page int) {
	if len(p.Items) == 0 {
		fmt.Fprintln(w, styles.DimStyle.Render("No channels."))
		return
	}

	now := time.Now()
	rows := [][]string{{"ID", "NAME", "CATEGORY", "", "NOW PLAYING"}}
	for _, ch := range p.Items {
		marks := ""
		if ch.IsFavorite {
			marks += styles.FavoriteChar
		}
		if ch.IsHidden {
			marks += styles.HiddenChar
		}
		playing := ""
		if e, ok := ch.NowPlaying(now); ok {
			playing = e.Title
		}
		rows = append(rows, []string{strconv.FormatInt(ch.ID, 10), ch.Name, ch.Category, marks, playing})
	}
	printTable(w, rows)

	footer := fmt.Sprintf("page %d · %d channels", page, p.Total)
	if p.HasMore {
		footer += fmt.Sprintf(" · more with --page %d", page+1)
	}
	fmt.Fprintln(w, styles.DimStyle.Render(footer))
}

// printTable renders rows in aligned columns, the first row as header
func printTable(w io.Writer, rows [][]string) {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := cellStyle.Width(widths[i] + 2)
			if r == 0 {
				style = style.Inherit(headerStyle)
			}
			cells[i] = style.Render(cell)
		}
		fmt.Fprintln(w, strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " "))
	}
}
