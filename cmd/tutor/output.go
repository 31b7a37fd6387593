package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	tutor "github.com/asofia888/russian-talk-tutor"
	"github.com/spf13/cobra"
)

// outputAsJSON writes v as indented JSON to the command's stdout.
func outputAsJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError prints err to w. Classified errors show the learner-facing
// message first. The API key never appears in the output.
func outputError(w io.Writer, err error) {
	var te *tutor.Error
	msg := err.Error()
	if errors.As(err, &te) && te.UserMessage != "" {
		msg = fmt.Sprintf("%s (%s)", te.UserMessage, te.Message)
	}
	printError(w, "%s", scrubSensitiveData(msg))
}

func scrubSensitiveData(msg string) string {
	if cfgAPIKey != "" {
		msg = strings.ReplaceAll(msg, cfgAPIKey, "[REDACTED]")
	}
	return msg
}

// printConversation writes a dialogue with word references and grammar notes.
func printConversation(w io.Writer, res *tutor.ConversationResult, session *tutor.Session) {
	fmt.Fprintf(w, "%s  %s\n", style(labelStyle, res.Topic.Title), style(mutedStyle, "["+res.Topic.ID+"]"))
	if res.FromCache {
		printMuted(w, "(cached %s)", res.FetchedAt.Local().Format("2006-01-02 15:04"))
	}
	if res.Warning != nil {
		printWarning(w, "%s", res.Warning.UserMessage)
	}
	fmt.Fprintln(w)

	for _, line := range res.Lines {
		printLine(w, line)
		for _, word := range line.Words {
			caseNote := ""
			if d, ok := word.Drill(); ok {
				caseNote = "  " + style(mutedStyle, fmt.Sprintf("(%s ← %s)", d.CaseNameLocal, d.BaseForm))
			}
			fmt.Fprintf(w, "      %s %s  %s  %s%s\n",
				style(mutedStyle, "["+session.Track(word)+"]"), word.Russian,
				style(mutedStyle, word.Pronunciation), word.Translation, caseNote)
		}
		if gp := line.GrammarPoint; gp != nil {
			fmt.Fprintln(w, renderMarkdown(grammarMarkdown(gp)))
		}
		fmt.Fprintln(w)
	}
	printMuted(w, "Save a word with: tutor favorites add <W-ref> --topic %s", res.Topic.ID)
	printMuted(w, "Case table:       tutor favorites drill <W-ref> --topic %s", res.Topic.ID)
}

// printLine writes one utterance.
func printLine(w io.Writer, line tutor.ConversationLine) {
	fmt.Fprintf(w, "%s: %s\n", style(speakerStyle, line.Speaker), style(russianStyle, line.Russian))
	if line.Pronunciation != "" {
		fmt.Fprintf(w, "    %s\n", style(mutedStyle, line.Pronunciation))
	}
	fmt.Fprintf(w, "    %s\n", line.Translation)
}

func grammarMarkdown(gp *tutor.GrammarPoint) string {
	var sb strings.Builder
	sb.WriteString("## " + gp.Title + "\n\n")
	sb.WriteString(gp.Explanation + "\n")
	for _, ex := range gp.Examples {
		sb.WriteString(fmt.Sprintf("\n- **%s** (%s) %s", ex.Russian, ex.Pronunciation, ex.Translation))
	}
	return sb.String()
}

// printCaseDrill writes a declension table with the word's case marked.
func printCaseDrill(w io.Writer, d tutor.CaseDrill) {
	fmt.Fprintf(w, "%s %s\n", style(labelStyle, "格変化ドリル:"), style(russianStyle, d.BaseForm))
	printMuted(w, "文中では「%s」として使われています。", d.Russian)
	fmt.Fprintf(w, "格: %s (%s)\n", style(labelStyle, d.CaseNameLocal), d.CaseName)
	fmt.Fprintf(w, "理由: %s\n\n", d.Explanation)

	fmt.Fprintf(w, "  %-8s %-16s %s\n", "格", "単数形", "複数形")
	for _, row := range d.Rows {
		text := fmt.Sprintf("%-8s %-16s %s", row.CaseLocal, row.Singular, row.Plural)
		if row.Current {
			fmt.Fprintf(w, "%s %s\n", style(speakerStyle, "→"), style(labelStyle, text))
			continue
		}
		fmt.Fprintf(w, "  %s\n", text)
	}
}

// printFeedback writes a pronunciation assessment.
func printFeedback(w io.Writer, fb *tutor.Feedback) {
	verdict := style(warningStyle, "もう一度")
	if fb.IsCorrect {
		verdict = style(successStyle, "正解")
	}
	box := fmt.Sprintf("%.0f/100  %s\n%s", fb.Score, verdict, fb.Text)
	if isTTY() {
		box = scoreBoxStyle.Render(box)
	}
	fmt.Fprintln(w, box)
}

// printFavorites writes the favorites table.
func printFavorites(w io.Writer, favs []tutor.FavoriteWord, session *tutor.Session) {
	if len(favs) == 0 {
		fmt.Fprintln(w, "No favorites yet.")
		return
	}
	fmt.Fprintf(w, "%d favorite(s):\n", len(favs))
	for _, fw := range favs {
		fmt.Fprintf(w, "  %-5s %s  %s  %s  %s\n",
			session.Track(fw.Word), style(russianStyle, fw.Russian), fw.Translation,
			style(mutedStyle, fmt.Sprintf("next %s", fw.NextReviewDate.Format("2006-01-02"))),
			style(mutedStyle, fmt.Sprintf("ease %.2f", fw.EaseFactor)))
	}
}
