package scoring

// GenericSkills maps a broad skill term to specific skills that satisfy it.
var GenericSkills = map[string][]string{
	"databases":        {"mysql", "postgresql", "mongodb", "sqlite", "oracle"},
	"sql":              {"mysql", "postgresql", "sqlite", "oracle"},
	"version control":  {"git", "github", "gitlab", "bitbucket"},
	"machine learning": {"scikit-learn", "tensorflow", "pytorch", "keras"},
	"nlp":              {"spacy", "nltk", "bert", "transformers"},
}

// ExpandGeneric splits jobSkills into matched and missing. A job skill is
// matched when the resume lists it literally, or when it is a generic term
// and the resume lists any of its specific synonyms. The two results always
// partition jobSkills and are sorted.
func ExpandGeneric(jobSkills, resumeSkills []string) (matched, missing []string) {
	return expandWith(GenericSkills, jobSkills, resumeSkills)
}

func expandWith(generic map[string][]string, jobSkills, resumeSkills []string) ([]string, []string) {
	resumeSet := toSet(resumeSkills)

	matchedSet := make(map[string]struct{})
	missingSet := make(map[string]struct{})

	for _, skill := range jobSkills {
		if _, ok := resumeSet[skill]; ok || coveredBySynonym(generic[skill], resumeSet) {
			matchedSet[skill] = struct{}{}
			continue
		}
		missingSet[skill] = struct{}{}
	}

	return sortedKeys(matchedSet), sortedKeys(missingSet)
}

func coveredBySynonym(specifics []string, resumeSet map[string]struct{}) bool {
	for _, s := range specifics {
		if _, ok := resumeSet[s]; ok {
			return true
		}
	}
	return false
}
