package http

const (
	Ping    = "Ping"
	Version = "Version"

	GetDiff          = "GetDiff"
	InsertDiff       = "InsertDiff"
	LatestDiffs      = "LatestDiffs"
	AllDiffs         = "AllDiffs"
	Configs          = "Configs"
	ComputeAllDiffs  = "ComputeAllDiffs"
	ToggleReview     = "ToggleReview"
	CompareDocuments = "CompareDocuments"

	ListRepos    = "ListRepos"
	CountRepos   = "CountRepos"
	GetRepo      = "GetRepo"
	RepoContents = "RepoContents"
)
