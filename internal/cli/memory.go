package cli

import (
	"fmt"
	"os"

	"github.com/rcliao/babbly/internal/export"
	"github.com/rcliao/babbly/internal/memories"
	"github.com/rcliao/babbly/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "memory",
		Aliases: []string{"memories"},
		Short:   "Browse and curate memories",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List memories, newest first",
		Run:   runMemoryList,
	}
	list.Flags().Bool("favorites", false, "Only favorites")
	cmd.AddCommand(list)

	add := &cobra.Command{
		Use:   "add",
		Short: "Write a memory",
		Run:   runMemoryAdd,
	}
	addMemoryFlags(add)
	add.MarkFlagRequired("title")
	cmd.AddCommand(add)

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoryEdit,
	}
	addMemoryFlags(edit)
	cmd.AddCommand(edit)

	cmd.AddCommand(&cobra.Command{
		Use:   "fav <id>",
		Short: "Toggle favorite",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoryFav,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a memory; generated ones are not re-created",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoryRm,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "share <id>",
		Short: "Print a share card for a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoryShare,
	})

	RootCmd.AddCommand(cmd)
}

func addMemoryFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "Title")
	cmd.Flags().String("content", "", "Text")
	cmd.Flags().String("mood", "", "Mood color, e.g. #fbcfe8")
	cmd.Flags().String("media", "", "Path or URL of an attached photo")
	cmd.Flags().String("at", "", "When it happened (default now)")
}

func runMemoryList(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	favOnly, _ := cmd.Flags().GetBool("favorites")
	ms := []model.Memory{}
	for _, m := range a.book.Memories() {
		if favOnly && !m.IsFavorite {
			continue
		}
		ms = append(ms, m)
	}

	if textOutput() {
		for _, m := range ms {
			fmt.Println(formatMemory(m, a.loc))
		}
		return
	}
	printJSON(ms)
}

func runMemoryAdd(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	in := memories.NewMemory{}
	in.Title, _ = cmd.Flags().GetString("title")
	in.Content, _ = cmd.Flags().GetString("content")
	in.MoodColor, _ = cmd.Flags().GetString("mood")
	in.MediaRef, _ = cmd.Flags().GetString("media")
	if s, _ := cmd.Flags().GetString("at"); s != "" {
		var err error
		if in.Timestamp, err = parseTime(s, a.now()); err != nil {
			exitErr("memory add", err)
		}
	}

	m, err := a.book.Add(cmd.Context(), in)
	if err != nil {
		exitErr("memory add", err)
	}
	printJSON(m)
}

func runMemoryEdit(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	var p model.MemoryPatch
	for flag, dst := range map[string]**string{
		"title":   &p.Title,
		"content": &p.Content,
		"mood":    &p.MoodColor,
		"media":   &p.MediaRef,
	} {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetString(flag)
			*dst = &v
		}
	}
	if s, _ := cmd.Flags().GetString("at"); s != "" {
		t, err := parseTime(s, a.now())
		if err != nil {
			exitErr("memory edit", err)
		}
		p.Timestamp = &t
	}

	m, err := a.book.Update(cmd.Context(), args[0], p)
	if err != nil {
		exitErr("memory edit", err)
	}
	printJSON(m)
}

func runMemoryFav(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	m, err := a.book.ToggleFavorite(cmd.Context(), args[0])
	if err != nil {
		exitErr("memory fav", err)
	}
	printJSON(m)
}

func runMemoryRm(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	if err := a.book.Delete(cmd.Context(), args[0]); err != nil {
		exitErr("memory rm", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q}`+"\n", args[0])
}

func runMemoryShare(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	m, err := a.book.Get(args[0])
	if err != nil {
		exitErr("memory share", err)
	}
	if err := export.WriteShareCard(os.Stdout, m, a.events.Profile().Name, a.loc); err != nil {
		exitErr("memory share", err)
	}
}
