package pomodoro

import (
	"fmt"
	"strconv"
	"time"

	"telegram-focus-bot/internal/models"
)

// Callback data of pomodoro buttons.
const (
	CbPrefix    = "pom:"
	CbStartWork = CbPrefix + "start_work"
	CbPause     = CbPrefix + "pause"
	CbResume    = CbPrefix + "resume"
	CbStop      = CbPrefix + "stop"

	CbTaskDone = "task:done_pom_end:"
	CbTaskSkip = "task:skip_done_pom:"
)

const (
	txtStarting     = "🍅 Pomodoro запускается..."
	txtForTask      = "\n📝 Для задачи: «%s»"
	txtToWork       = "🏁 Время работать!"
	txtToShort      = "👍 Интервал завершён! Короткий перерыв."
	txtToLong       = "🎉 Отличная работа! Время длинного перерыва."
	txtSequenceDone = "🧘 Длинный перерыв окончен. Полная серия Pomodoro завершена! Отличная работа! 👍"
	txtFinalStatus  = "🍅 Серия Pomodoro завершена!"
	txtStopped      = "⏹️ Таймер Pomodoro остановлен."
	txtPaused       = "⏸️ Пауза. %s осталось."
	txtResumed      = "▶️ Возобновлено..."
	txtBrokenState  = "❌ Неизвестная ошибка состояния таймера, таймер остановлен."
	txtMarkTask     = "Вы работали над задачей: «%s».\nОтметить её выполненной?"
)

func startingText(title string) string {
	if title == "" {
		return txtStarting
	}
	return txtStarting + fmt.Sprintf(txtForTask, title)
}

func (m *Manager) phaseLabel(rt *Runtime) string {
	switch rt.State {
	case models.StateWork:
		label := fmt.Sprintf("💪 Работаем (%d/%d)", rt.Done+1, m.cfg.LongBreakEvery)
		if rt.TaskTitle != "" {
			label += fmt.Sprintf(" (задача: «%s»)", rt.TaskTitle)
		}
		return label
	case models.StateShortBreak:
		return "☕️ Короткий перерыв"
	case models.StateLongBreak:
		return "🧘 Длинный перерыв"
	}
	return ""
}

func (m *Manager) statusText(rt *Runtime, now time.Time) string {
	return fmt.Sprintf("%s\n%s %s", m.phaseLabel(rt),
		ProgressBar(rt.elapsed(now), rt.Duration, barWidth), FormatRemaining(rt.remaining(now)))
}

func (m *Manager) keyboard(state models.State, paused bool) models.Keyboard {
	if !state.Active() {
		label := fmt.Sprintf("🚀 Начать (%d мин)", int(m.cfg.Work/time.Minute))
		return models.Keyboard{models.Row(models.Button{Text: label, Data: CbStartWork})}
	}
	toggle := models.Button{Text: "⏸️ Пауза", Data: CbPause}
	if paused {
		toggle = models.Button{Text: "▶️ Продолжить", Data: CbResume}
	}
	return models.Keyboard{models.Row(toggle, models.Button{Text: "⏹️ Стоп", Data: CbStop})}
}

func markTaskKeyboard(taskID int64) models.Keyboard {
	id := strconv.FormatInt(taskID, 10)
	return models.Keyboard{models.Row(
		models.Button{Text: "✅ Да, отметить выполненной", Data: CbTaskDone + id},
		models.Button{Text: "❌ Нет, оставить активной", Data: CbTaskSkip + id},
	)}
}
