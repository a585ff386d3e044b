package reminder

import (
	"fmt"
	"strconv"

	"telegram-focus-bot/internal/models"
)

// Callback data prefixes of reminder buttons.
const (
	CbDone   = "done:"
	CbDelay  = "delay:"
	CbDelayH = "delay_h:" // delay_h:<hours>:<taskID>
)

const (
	btnDone    = "✅ Выполнено"
	btnDelay   = "⏱ Перенести"
	btnYesDone = "✅ Да, выполнено"
	btnDelay1h = "⏱ Перенести на 1 ч"
	btnDelay3h = "🔄 Перенести на 3 ч"
)

func FirstReminderText(t *models.Task) string {
	return fmt.Sprintf("⏰❓ Вы выполнили «%s»?", t.Description)
}

func FollowUpText(t *models.Task) string {
	return fmt.Sprintf("❓ Напоминаю: вы выполнили «%s»?", t.Description)
}

func FirstReminderKeyboard(taskID int64) models.Keyboard {
	id := strconv.FormatInt(taskID, 10)
	return models.Keyboard{
		models.Row(
			models.Button{Text: btnDone, Data: CbDone + id},
			models.Button{Text: btnDelay, Data: CbDelay + id},
		),
	}
}

func FollowUpKeyboard(taskID int64) models.Keyboard {
	id := strconv.FormatInt(taskID, 10)
	return models.Keyboard{
		models.Row(models.Button{Text: btnYesDone, Data: CbDone + id}),
		models.Row(
			models.Button{Text: btnDelay1h, Data: CbDelayH + "1:" + id},
			models.Button{Text: btnDelay3h, Data: CbDelayH + "3:" + id},
		),
	}
}
