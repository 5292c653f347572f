package model

type Permission string

const (
	PermSeePrivateContest      Permission = "see_private_contest"
	PermEditOwnContest         Permission = "edit_own_contest"
	PermEditAllContest         Permission = "edit_all_contest"
	PermChangeContestVisible   Permission = "change_contest_visibility"
	PermSeeOrganizationProblem Permission = "see_organization_problem"
	PermSeePrivateProblem      Permission = "see_private_problem"
	PermEditOwnProblem         Permission = "edit_own_problem"
	PermEditAllProblem         Permission = "edit_all_problem"
	PermEditPublicProblem      Permission = "edit_public_problem"
	PermChangeBlogPost         Permission = "change_blogpost"
	PermEditAllPost            Permission = "edit_all_post"
	PermEditAllOrganization    Permission = "edit_all_organization"
	PermViewAllSubmission      Permission = "view_all_submission"
)

var rankPermissions = map[DisplayRank]map[Permission]bool{
	RankUser: {},
	RankSetter: {
		PermEditOwnContest:       true,
		PermChangeContestVisible: true,
		PermEditOwnProblem:       true,
		PermChangeBlogPost:       true,
	},
}

// HasPerm 管理员拥有全部权限
func (r DisplayRank) HasPerm(p Permission) bool {
	if r == RankAdmin {
		return true
	}
	return rankPermissions[r][p]
}
