package handlers

import (
	"fmt"
	"strings"
	"time"

	"telegram-focus-bot/internal/models"
)

const localLayout = "02.01.2006 15:04"

func (h *Handler) local(t time.Time) string {
	return t.In(h.Loc).Format(localLayout)
}

// taskList renders active tasks, one per line, with shortcuts to finish or remind.
func (h *Handler) taskList(tasks []models.Task) string {
	if len(tasks) == 0 {
		return txtNoTasks
	}
	var b strings.Builder
	b.WriteString("📋 Активные задачи:\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "\n#%d %s", t.ID, t.Description)
		if t.RemindAt != nil {
			fmt.Fprintf(&b, " ⏰%s", h.local(*t.RemindAt))
		}
		fmt.Fprintf(&b, "\n   /done_%d  /remind_%d", t.ID, t.ID)
	}
	return b.String()
}
