package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandRun は対象シートを1回処理して終了することを示す。
	CommandRun Command = "run"
	// CommandWorker は一定間隔でサイクルを実行し、運用向けHTTPサーバーを公開することを示す。
	CommandWorker Command = "worker"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandRunを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandRun
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "run":
		return CommandRun
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandRun
	}
}
