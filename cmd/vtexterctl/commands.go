package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/matheus3301/vtexter/internal/api"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/timefmt"
	"github.com/skip2/go-qrcode"
)

func (a *cli) status(ctx context.Context) error {
	resp, err := a.c.Status(ctx)
	if err != nil {
		return err
	}
	if a.json {
		outputJSON(resp)
		return nil
	}
	printStatus(resp)
	return nil
}

func printStatus(resp *api.StatusResponse) {
	fmt.Printf("Session:  %s\n", resp.Session)
	fmt.Printf("State:    %s (%s)\n", resp.State, timefmt.Relative(resp.SinceMs))
	if resp.User != nil {
		fmt.Printf("User:     %s (%s)\n", resp.User.Name, resp.User.UserID)
	} else {
		fmt.Println("User:     signed out")
	}
	fmt.Printf("Remote:   %s\n", resp.Remote)
	if resp.LastSnapshotMs > 0 {
		fmt.Printf("Synced:   %s\n", timefmt.Relative(resp.LastSnapshotMs))
	} else {
		fmt.Println("Synced:   never")
	}
	if resp.LastError != "" {
		fmt.Printf("Error:    %s\n", resp.LastError)
	}
	fmt.Printf("Uptime:   %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
	fmt.Printf("Counts:   %d users, %d chats, %d messages, %d media, %d contacts\n",
		resp.Users, resp.Chats, resp.Messages, resp.Media, resp.Contacts)
}

func (a *cli) signIn(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usageError("signin <userId> <name> [email]")
	}
	req := api.SignInRequest{UserID: args[0], Name: args[1]}
	if len(args) == 3 {
		req.Email = args[2]
	}
	u, err := a.c.SignIn(ctx, req)
	if err != nil {
		return err
	}
	if a.json {
		outputJSON(u)
		return nil
	}
	fmt.Printf("Signed in as %s (%s)\n", u.Name, u.UserID)
	return nil
}

func (a *cli) chats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chats", flag.ContinueOnError)
	archived := fs.Bool("archived", false, "list archived chats")
	if err := fs.Parse(args); err != nil {
		return usageError("chats [--archived]")
	}
	resp, err := a.c.Chats(ctx, *archived)
	if err != nil {
		return err
	}
	if a.json {
		outputJSON(resp)
		return nil
	}
	printChats(resp)
	return nil
}

func printChats(resp *api.ChatListResponse) {
	if len(resp.Chats) == 0 {
		fmt.Println("No chats.")
		return
	}
	for _, c := range resp.Chats {
		preview := c.LastMessage
		if c.IsTyping {
			preview = "typing..."
		}
		fmt.Printf("%-36s %-20s %-10s %s%s\n", c.ChatID, c.OtherUserName, timefmt.ChatTime(c.LastMessageTime), preview, chatMarks(c))
	}
	if resp.TotalUnread > 0 {
		fmt.Printf("\n%d unread\n", resp.TotalUnread)
	}
}

func chatMarks(c model.Chat) string {
	var marks []string
	if c.UnreadCount > 0 {
		marks = append(marks, fmt.Sprintf("(%d)", c.UnreadCount))
	}
	if c.IsPinned {
		marks = append(marks, "[pinned]")
	}
	if c.IsMuted {
		marks = append(marks, "[muted]")
	}
	if len(marks) == 0 {
		return ""
	}
	return " " + strings.Join(marks, " ")
}

func (a *cli) open(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageError("open <userId> [name]")
	}
	name := ""
	if len(args) == 2 {
		name = args[1]
	}
	id, err := a.c.OpenChat(ctx, args[0], name)
	if err != nil {
		return err
	}
	if a.json {
		outputJSON(api.ChatResponse{ChatID: id})
		return nil
	}
	fmt.Println(id)
	return nil
}

func (a *cli) messages(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("messages <chatId>")
	}
	msgs, err := a.c.Messages(ctx, args[0])
	if err != nil {
		return err
	}
	if a.json {
		outputJSON(api.MessagesResponse{Messages: msgs})
		return nil
	}
	printMessages(msgs)
	return nil
}

func printMessages(msgs []model.Message) {
	if len(msgs) == 0 {
		fmt.Println("No messages.")
		return
	}
	header := ""
	for _, m := range msgs {
		if h := timefmt.DateHeader(m.Timestamp); h != header {
			header = h
			fmt.Printf("-- %s --\n", header)
		}
		fmt.Printf("%s %-16s %s\n", timefmt.MessageTime(m.Timestamp), m.SenderName, messageBody(m))
	}
}

func messageBody(m model.Message) string {
	if m.IsDeleted {
		return "(deleted)"
	}
	switch m.Type {
	case model.TypeText:
		return m.Text
	case model.TypeAudio, model.TypeVideo:
		return fmt.Sprintf("[%s %s] %s", strings.ToLower(string(m.Type)), timefmt.Duration(m.MediaDuration), m.MediaPath)
	case model.TypeDocument:
		return fmt.Sprintf("[document %s] %s", m.FileName, m.MediaPath)
	}
	body := fmt.Sprintf("[%s] %s", strings.ToLower(string(m.Type)), m.MediaPath)
	if m.Text != "" {
		body += " " + m.Text
	}
	return body
}

func (a *cli) send(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("send <chatId> <text>")
	}
	m, err := a.c.SendText(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	return a.printSent(m)
}

func (a *cli) sendFile(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usageError("send-file <chatId> <image|video|document|audio> <path> [caption]")
	}
	// The daemon opens the file, so relative paths are resolved here.
	path, err := filepath.Abs(args[2])
	if err != nil {
		return err
	}
	req := api.SendFileRequest{
		ChatID:   args[0],
		Kind:     strings.ToUpper(args[1]),
		Path:     path,
		FileName: filepath.Base(path),
	}
	if len(args) > 3 {
		req.Caption = strings.Join(args[3:], " ")
	}
	m, err := a.c.SendFile(ctx, req)
	if err != nil {
		return err
	}
	return a.printSent(m)
}

func (a *cli) printSent(m *model.Message) error {
	if a.json {
		outputJSON(m)
		return nil
	}
	fmt.Printf("Sent %s %s\n", strings.ToLower(string(m.Type)), m.MessageID)
	return nil
}

func (a *cli) clear(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("clear <chatId>")
	}
	n, err := a.c.ClearChat(ctx, args[0])
	if err != nil {
		return err
	}
	if a.json {
		outputJSON(api.CountResponse{Count: n})
		return nil
	}
	fmt.Printf("Deleted %d messages\n", n)
	return nil
}

var flagNames = map[string]string{
	"pin":     api.FlagPinned,
	"archive": api.FlagArchived,
	"mute":    api.FlagMuted,
}

func (a *cli) setFlag(ctx context.Context, cmd string, args []string) error {
	if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
		return usageError(cmd + " <chatId> <on|off>")
	}
	return a.c.SetFlag(ctx, args[0], flagNames[cmd], args[1] == "on")
}

func (a *cli) contacts(ctx context.Context, args []string) error {
	contacts, err := a.c.Contacts(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if a.json {
		outputJSON(api.ContactsResponse{Contacts: contacts})
		return nil
	}
	if len(contacts) == 0 {
		fmt.Println("No contacts.")
		return nil
	}
	for _, c := range contacts {
		fmt.Printf("%-20s %-24s %s\n", c.UserID, c.Name, c.Email)
	}
	return nil
}

func (a *cli) storage(ctx context.Context, args []string) error {
	if len(args) == 1 && args[0] == "clear" {
		return a.c.ClearStorage(ctx)
	}
	if len(args) != 0 {
		return usageError("storage [clear]")
	}
	resp, err := a.c.Storage(ctx)
	if err != nil {
		return err
	}
	if a.json {
		outputJSON(resp)
		return nil
	}
	fmt.Printf("Used:      %s\n", humanBytes(resp.Bytes))
	fmt.Printf("Images:    %d\n", resp.Images)
	fmt.Printf("Videos:    %d\n", resp.Videos)
	fmt.Printf("Audio:     %d\n", resp.Audio)
	fmt.Printf("Documents: %d\n", resp.Docs)
	return nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func (a *cli) profile(ctx context.Context, args []string) error {
	if len(args) == 2 && args[0] == "picture" {
		path, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		stored, err := a.c.SetProfilePicture(ctx, path)
		if err != nil {
			return err
		}
		fmt.Println(stored)
		return nil
	}
	u, err := a.c.Profile(ctx)
	if err != nil {
		return err
	}
	switch {
	case len(args) == 0:
		if a.json {
			outputJSON(u)
			return nil
		}
		fmt.Printf("ID:      %s\n", u.UserID)
		fmt.Printf("Name:    %s\n", u.Name)
		fmt.Printf("Email:   %s\n", u.Email)
		fmt.Printf("Status:  %s\n", u.Status)
		fmt.Printf("Seen:    %s\n", strings.TrimPrefix(timefmt.LastSeen(u.LastSeen), "last seen "))
		return nil
	case len(args) == 1 && args[0] == "qr":
		qr, err := qrcode.New(profileLink(u), qrcode.Medium)
		if err != nil {
			return fmt.Errorf("generate QR: %w", err)
		}
		fmt.Print(qr.ToSmallString(false))
		fmt.Printf("Scan to open a chat with %s\n", u.Name)
		return nil
	}
	return usageError("profile [qr|picture <path>]")
}

// profileLink is the content of the profile QR code.
func profileLink(u *model.User) string {
	return "vtexter://user/" + u.UserID
}

func (a *cli) watch(ctx context.Context, args []string) error {
	switch {
	case len(args) >= 1 && args[0] == "chats":
		archived := len(args) == 2 && args[1] == "--archived"
		return a.c.WatchChats(ctx, archived, func(resp *api.ChatListResponse) error {
			if a.json {
				outputJSON(resp)
				return nil
			}
			fmt.Printf("== %s ==\n", time.Now().Format("15:04:05"))
			printChats(resp)
			return nil
		})
	case len(args) == 2 && args[0] == "messages":
		return a.c.WatchConversation(ctx, args[1], func(resp *api.ConversationResponse) error {
			if a.json {
				outputJSON(resp)
				return nil
			}
			fmt.Printf("== %s (%s) ==\n", resp.Chat.OtherUserName, presence(resp))
			printMessages(resp.Messages)
			return nil
		})
	}
	return usageError("watch chats [--archived] | watch messages <chatId>")
}

func presence(resp *api.ConversationResponse) string {
	switch {
	case resp.Typing:
		return "typing..."
	case resp.Online:
		return "online"
	case resp.LastSeen > 0:
		return timefmt.LastSeen(resp.LastSeen)
	}
	return "offline"
}
