package handlers

import (
	"strconv"
	"strings"
)

const (
	menuTasks    = "📋 Мои задачи"
	menuPomodoro = "🍅 Pomodoro"
	menuHelp     = "❓ Помощь"
)

const (
	txtMenu    = "Главное меню"
	txtHelp    = "Команды:\n/add <текст> - новая задача\n/list - активные задачи\n/done <id> - отметить выполненной\n/remind <id> <время|off> - напоминание (HH:MM, dd.mm.YYYY HH:MM, YYYY-MM-DD HH:MM)\n/pomodoro [id] - серия Pomodoro"
	txtAddHint = "Напишите текст задачи: /add купить молоко"
	txtIDHint  = "Укажите номер задачи, например /done 3"
	txtNoTasks = "🎉 Активных задач нет."

	txtTaskAdded    = "✅ Задача #%d добавлена: «%s»"
	txtTaskNotFound = "⚠️ Задача не найдена."
	txtTaskDone     = "✅ Задача «%s» выполнена!"
	txtAlreadyDone  = "👌 Задача «%s» уже выполнена."
	txtTaskKept     = "👌 Задача «%s» остаётся активной."

	txtAskRemind  = "⏰ Когда напомнить о «%s»? Введите HH:MM, dd.mm.YYYY HH:MM или YYYY-MM-DD HH:MM (или off)."
	txtRemindSet  = "⏰ Напоминание для «%s» установлено на %s."
	txtRemindOff  = "⏰ Напоминание выключено."
	txtBadRemind  = "⚠️ Неверный формат времени. Используйте HH:MM, dd.mm.YYYY HH:MM или YYYY-MM-DD HH:MM."
	txtAskDelay   = "⏱ На сколько перенести? Введите число часов или время HH:MM."
	txtDelayed    = "🔁 Напоминание перенесено на %s."
	txtBadDelay   = "❌ Неверный формат для переноса. Введите число (часы) или время HH:MM."
	txtTaskUnlink = "⚠️ Задача #%d не найдена или уже выполнена, Pomodoro запустится без неё."

	txtPomActive   = "⚠️ Pomodoro уже запущен."
	txtPomNoSeries = "Нет активной серии. Запустите /pomodoro."
	txtPomFailed   = "❌ Не удалось запустить Pomodoro."
	txtError       = "❌ Что-то пошло не так, попробуйте ещё раз."
)

// parseID reads a positive task id.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// splitCommand reads "/done_12"-style commands into ("done", "12").
func splitCommand(cmd string) (string, string) {
	name, suffix, ok := strings.Cut(cmd, "_")
	if !ok {
		return cmd, ""
	}
	return name, suffix
}

func mainMenu() [][]string {
	return [][]string{{menuTasks, menuPomodoro}, {menuHelp}}
}
