package sommelier

import (
	"fmt"
	"strings"
)

// Prompt and UX strings. The conversation runs in Russian; the parser
// grammar in parse.go is the contract these prompts promise the model.

// Greeting opens every fresh session.
const Greeting = "Привет! Я Литературный Сомелье. Подберу идеальную книгу по твоему настроению. Какое у тебя сейчас настроение? (например: грусть, энергия, романтика, мистика)"

const (
	// ApologyTurn is appended when a gateway call fails mid-turn.
	ApologyTurn = "Извините, произошла ошибка. Давайте попробуем снова."

	// ApologyConsult is appended when the consultation exchange fails.
	ApologyConsult = "Произошла ошибка при подборе рекомендаций. Попробуйте еще раз."

	// ApologyVoice is appended when the live channel fails.
	ApologyVoice = "Произошла ошибка с распознаванием голоса."

	// ApologyMicrophone is appended when microphone access fails.
	ApologyMicrophone = "Не удалось получить доступ к микрофону."
)

// imageTooLarge rejects oversized uploads before any gateway call.
const imageTooLarge = "Изображение слишком большое. Пожалуйста, выберите файл поменьше."

// dialogImageNudge is appended to a dialog turn that carries an image but
// no text of its own.
const dialogImageNudge = "Посмотри на это изображение и учти его в ответе. Если это книга, скажи мне, что ты о ней думаешь. Если это книжная полка, проанализируй вкусы владельца."

// dialogImageSuffix is appended to a dialog turn that carries both text and
// an image.
const dialogImageSuffix = " (Посмотри на это изображение и учти его в ответе)"

// systemInstruction frames every text-generation call with the sommelier
// persona and the workflow the model must follow.
func systemInstruction(step Step) string {
	return fmt.Sprintf(`Ты — "Литературный Сомелье", эмпатичный и вдохновляющий эксперт по подбору книг. Твои ответы должны быть лаконичными (до 150 слов). Ты строго следуешь рабочему процессу.

Workflow:
- init: Приветствие и диагностика (настроение, сюжет, жанры, особенности).
- consult: Предоставление 3 рекомендаций на основе ответов.
- dialog: Обсуждение рекомендаций, ответы на вопросы.

Current State:
- Step: %s`, step)
}

// questionnairePrompt asks the model to either pose the next clarifying
// question or emit the consultation sentinel.
func questionnairePrompt(history string) string {
	return fmt.Sprintf(`Это история нашего диалога:
---
%s
---

Твоя задача — проанализировать диалог и решить, что делать дальше.
1. Кратко и эмпатично отреагируй на последний ответ пользователя.
2. Определи, какой ключевой информации для подбора книг еще не хватает (из списка: сюжет, жанры, любимые авторы/книги, особые пожелания).
3. Задай следующий наиболее логичный вопрос, чтобы получить недостающую информацию.
4. Если ты считаешь, что информации о настроении, сюжете и жанрах уже достаточно, чтобы дать хорошую рекомендацию, то вместо следующего вопроса ВЕРНИ ТОЛЬКО КОМАНДУ: %s`, history, Sentinel)
}

// consultPrompt asks for exactly three recommendations in the delimited
// heading format the parser expects.
func consultPrompt(history string) string {
	return fmt.Sprintf(`Проанализируй весь предыдущий диалог, чтобы понять предпочтения пользователя:
---
%s
---

Теперь, основываясь на всей собранной информации, дай 3 рекомендации книг, разделяя их строкой "---".
Для каждой рекомендации:
1. Начни с заголовка в формате: ### Название (Автор).
2. Кратко объясни, почему она подходит, связывая с ответами из диалога.
3. Добавь интригующий тизер (1-2 предложения).
Для ПЕРВОЙ книги в списке, добавь в конце описания специальный тег для генерации изображения, который описывает атмосферу книги. Формат: "[описание по настроению: твой текст описания]".`, history)
}

// formatHistory renders the transcript as speaker-prefixed lines for the
// single-shot prompts.
func formatHistory(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		speaker := "Сомелье"
		if m.Sender == SenderUser {
			speaker = "Пользователь"
		}
		lines = append(lines, speaker+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}
