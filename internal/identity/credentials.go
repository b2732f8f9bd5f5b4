package identity

import "github.com/hitoshi/newcomers/internal/model"

// CrossReferenceResult は資格情報リストとの突き合わせ結果。
type CrossReferenceResult struct {
	// Employees は資格情報リンクを付与した全従業員。入力の順序を保つ。
	Employees []model.ResolvedEmployee
	// Uncredentialed は資格情報リストに存在せず、パスワードリセットが必要な従業員。
	Uncredentialed []model.ResolvedEmployee
}

// CrossReference は従業員IDで資格情報リストを引き、共有リンクを付与する。
// リストは従業員IDごとに高々1件の前提だが、重複があれば先に現れたエントリを使う。
// 見つからない従業員には fallbackLink を割り当て、Uncredentialed に加える。
func CrossReference(employees []model.ResolvedEmployee, listing []model.Credential, fallbackLink string) CrossReferenceResult {
	links := make(map[int]string, len(listing))
	for _, c := range listing {
		if _, seen := links[c.EmployeeID]; seen {
			continue
		}
		links[c.EmployeeID] = c.Link
	}

	result := CrossReferenceResult{
		Employees: make([]model.ResolvedEmployee, 0, len(employees)),
	}
	for _, e := range employees {
		if link, ok := links[e.EmployeeID]; ok {
			e.CredentialLink = link
			e.Uncredentialed = false
		} else {
			e.CredentialLink = fallbackLink
			e.Uncredentialed = true
			result.Uncredentialed = append(result.Uncredentialed, e)
		}
		result.Employees = append(result.Employees, e)
	}
	return result
}
