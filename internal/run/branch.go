package run

import "strings"

const branchSuffix = "AI_FIX"

// BranchName derives the target branch the fixing agent commits to, e.g.
// "rift organisers", "Saiyam Kumar" -> "RIFT_ORGANISERS_SAIYAM_KUMAR_AI_FIX".
// Only spaces are replaced; repeated separators are kept as they are.
func BranchName(team, leader string) string {
	name := strings.ToUpper(team + "_" + leader + "_" + branchSuffix)
	return strings.ReplaceAll(name, " ", "_")
}
