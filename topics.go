package tutor

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// builtinCatalog is the fixed topic list shipped with the application.
var builtinCatalog = []TopicCategory{
	{
		Name: "初級 (Beginner)",
		Topics: []Topic{
			{ID: "b-greetings", Title: "挨拶と基本的な表現", Description: "基本的な挨拶、感謝、謝罪の表現を学びます。", Level: LevelBeginner},
			{ID: "b-self-introduction", Title: "自己紹介", Description: "名前、国籍、簡単な職業を伝える練習をします。", Level: LevelBeginner},
			{ID: "b-alphabet", Title: "キリル文字と発音", Description: "ロシア語のアルファベットを学び、基本的な発音を練習します。", Level: LevelBeginner},
			{ID: "b-basic-questions", Title: "簡単な質問", Description: "「これは何？」「どこ？」「いつ？」など基本的な質問を学びます。", Level: LevelBeginner},
			{ID: "b-shopping-basic", Title: "簡単な買い物", Description: "値段を尋ねたり、商品を買ったりする初歩的な会話です。", Level: LevelBeginner},
			{ID: "b-ordering-food", Title: "カフェでの注文", Description: "基本的な食べ物や飲み物を注文する方法を学びます。", Level: LevelBeginner},
			{ID: "b-numbers-time", Title: "数字と時間", Description: "数字の言い方と、現在の時刻の尋ね方・答え方を練習します。", Level: LevelBeginner},
			{ID: "b-family", Title: "家族について", Description: "自分の家族について簡単に紹介します。", Level: LevelBeginner},
		},
	},
	{
		Name: "中級 (Intermediate)",
		Topics: []Topic{
			{ID: "i-transport-metro", Title: "地下鉄に乗る", Description: "駅で行き先を尋ね、切符を買う会話を練習します。", Level: LevelIntermediate},
			{ID: "i-asking-directions", Title: "道を尋ねる", Description: "目的地までの道順を尋ね、教えてもらいます。", Level: LevelIntermediate},
			{ID: "i-at-the-market", Title: "市場での買い物", Description: "市場で欲しいものを伝え、重さで買う練習をします。", Level: LevelIntermediate},
			{ID: "i-restaurant-requests", Title: "レストランでの会話", Description: "おすすめの料理を聞いたり、アレルギーについて伝えたりします。", Level: LevelIntermediate},
			{ID: "i-hotel-checkin", Title: "ホテルでチェックイン", Description: "予約の確認や部屋についての質問をします。", Level: LevelIntermediate},
			{ID: "i-hobbies", Title: "趣味について話す", Description: "自分の趣味や休日の過ごし方について話します。", Level: LevelIntermediate},
			{ID: "i-making-plans", Title: "友人と計画を立てる", Description: "友人と会う約束をするための会話を練習します。", Level: LevelIntermediate},
			{ID: "i-weather", Title: "天気について話す", Description: "今日の天気や季節について話す表現を学びます。", Level: LevelIntermediate},
		},
	},
	{
		Name: "上級 (Advanced)",
		Topics: []Topic{
			{ID: "a-renting-apartment", Title: "アパートを借りる", Description: "不動産屋で希望を伝え、賃貸契約について話します。", Level: LevelAdvanced},
			{ID: "a-at-the-bank", Title: "銀行での手続き", Description: "銀行で口座を開設したり、両替をしたりする会話です。", Level: LevelAdvanced},
			{ID: "a-job-interview", Title: "就職の面接", Description: "自分の経歴や長所をアピールする練習をします。", Level: LevelAdvanced},
			{ID: "a-discussing-literature", Title: "文学について語る", Description: "好きな作家や本について、感想を交えて話します。", Level: LevelAdvanced},
			{ID: "a-discussing-news", Title: "ニュースについて議論する", Description: "最近のニュースについて、自分の意見を交えて話します。", Level: LevelAdvanced},
			{ID: "a-russian-culture", Title: "ロシアの文化について話す", Description: "ロシアの文化や習慣について、より深い会話をします。", Level: LevelAdvanced},
			{ID: "a-at-the-dacha", Title: "ダーチャ（別荘）にて", Description: "ロシアのダーチャ文化に関連する会話を練習します。", Level: LevelAdvanced},
			{ID: "a-formal-conversation", Title: "丁寧な会話", Description: "目上の人や初対面の人と話す際の丁寧な表現を学びます。", Level: LevelAdvanced},
		},
	},
}

// Catalog returns a copy of the built-in topic categories.
func Catalog() []TopicCategory {
	out := make([]TopicCategory, len(builtinCatalog))
	for i, c := range builtinCatalog {
		out[i] = TopicCategory{Name: c.Name, Topics: append([]Topic(nil), c.Topics...)}
	}
	return out
}

// FindTopic looks up a built-in topic by ID.
func FindTopic(id string) (Topic, bool) {
	for _, c := range builtinCatalog {
		for _, t := range c.Topics {
			if t.ID == id {
				return t, true
			}
		}
	}
	return Topic{}, false
}

// TopicsByLevel returns the built-in topics of one level.
func TopicsByLevel(level Level) []Topic {
	var out []Topic
	for _, c := range builtinCatalog {
		for _, t := range c.Topics {
			if t.Level == level {
				out = append(out, t)
			}
		}
	}
	return out
}

// NewCustomTopic creates a learner-defined topic. The title is what the
// generator receives.
func NewCustomTopic(title string) (Topic, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Topic{}, fmt.Errorf("custom topic: title is empty")
	}
	return Topic{
		ID:    customTopicPrefix + "-" + strings.ToLower(ulid.Make().String()),
		Title: title,
		Level: LevelIntermediate,
	}, nil
}

// CustomTopicRecord is an entry of the custom topic history.
type CustomTopicRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}
