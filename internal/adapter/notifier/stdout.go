package notifier

import (
	"context"
	"fmt"

	"github.com/user/playtime-tracker/internal/domain"
)

// StdoutNotifier is an implementation of domain.Notifier that prints to
// standard output. Used when no webhook URL is configured.
type StdoutNotifier struct{}

// NewStdoutNotifier creates a new StdoutNotifier.
func NewStdoutNotifier() *StdoutNotifier {
	return &StdoutNotifier{}
}

// Notify prints the notification to stdout.
func (n *StdoutNotifier) Notify(ctx context.Context, notif domain.Notification) error {
	fmt.Printf("--- NOTIFICATION ---\n%s\n%s\n", notif.Title, notif.Description)
	for _, f := range notif.Fields {
		fmt.Printf("%s: %s\n", f.Name, f.Value)
	}
	fmt.Println("--------------------")
	return nil
}
