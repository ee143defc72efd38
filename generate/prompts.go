package generate

// DefaultSeedPrompt primes the model to emit exactly one safe, concrete
// Japanese instruction per call. It doubles as the liveness-probe prompt so
// that a probe exercises the same code path as a real generation.
const DefaultSeedPrompt = "あなたは日本語の教師ありデータ作成アシスタントです。以下の要件を満たす、AIアシスタントに与える明確で具体的な指示を1つだけ出力してください。\n" +
	"\n" +
	"要件:\n" +
	"- 出力は日本語のみ。先頭や末尾の記号・ラベル・引用符・Markdownを付けない。1行のみ。\n" +
	"- 安全で一般利用可能（個人情報・違法・差別・アダルト・危険行為・医療/法務/金融の断定的助言は不可）。\n" +
	"- 曖昧語やプレースホルダー（「指示」「〇〇」「[入力]」など）は使わない。\n" +
	"- 可能なら現実的な制約（字数/形式/視点/ステップ数/箇条書き可否など）を含める。\n" +
	"- 要約・翻訳・書き換え・分類などのタスク自体は可。ただしここでは入力テキストを含めない（入力は別工程で生成されます）。\n" +
	"- 日常・IT・ビジネス・学術などから多様なテーマを選ぶ。\n" +
	"\n" +
	"良い例:\n" +
	"- 電話でのクレーム対応を想定し、落ち着いた口調で謝罪と解決策を提案するテンプレートを3通り作成してください。\n" +
	"- PythonでCSVを読み込み、指定列の平均と中央値を計算して表示するスクリプトを書いてください。\n" +
	"- 履歴書の志望動機を200字以内で、未経験からの転職を前向きに表現する文章に書き直してください。\n" +
	"\n" +
	"悪い例:\n" +
	"- 指示\n" +
	"- 次の文章を要約して\n" +
	"- 〇〇について\n" +
	"\n" +
	"出力: 指示文のみ1行。"

// inputPromptPrefix asks for at most one auxiliary input example for an
// instruction, or an empty string when none is needed.
const inputPromptPrefix = "次の指示に対して、必要であればユーザーからの補助的な入力(input)の例を1つだけ日本語で返してください。" +
	"不要な場合は空文字のみを返してください。説明・ラベル・記号・Markdown・引用符は禁止。" +
	"改行せず1行でinput本文のみを返してください。\n\n指示:\n"
