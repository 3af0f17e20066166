package util

const ApplicationName = `refcheck`
const ApplicationSummary = `Validates that the records referred to by reference fields exist`
const ApplicationVersion = `0.1.0`

type Status struct {
	OK          bool     `json:"ok"`
	Application string   `json:"application"`
	Version     string   `json:"version"`
	Backend     string   `json:"backend,omitempty"`
	Collections []string `json:"collections,omitempty"`
}

func NewStatus(backend string, collections ...string) Status {
	return Status{
		OK:          true,
		Application: ApplicationName,
		Version:     ApplicationVersion,
		Backend:     backend,
		Collections: collections,
	}
}
