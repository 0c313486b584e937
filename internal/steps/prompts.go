package steps

// Default prompts, used when the job input does not override them. Prompt
// quality is the surrounding product's concern; these exist so the pipeline
// is runnable standalone.
const (
	clusteringSystemPrompt = `You are a professional research assistant organizing public consultation data.
Respond only with a JSON object.`

	clusteringUserPrompt = `Cluster the following comments into a two-level taxonomy of topics and
subtopics. Return {"taxonomy": [{"topicName", "topicShortDescription",
"subtopics": [{"subtopicName", "subtopicShortDescription"}]}]}.`

	extractionSystemPrompt = `You are a professional research assistant extracting participant claims.
Respond only with a JSON object.`

	extractionUserPrompt = `For each comment, extract the distinct claims it makes and file each under
the best-fitting topic and subtopic from the taxonomy. Quote the supporting
span. Return {"claims": [{"claim", "quote", "commentId", "topicName",
"subtopicName"}]}.`

	sortingSystemPrompt = `You are a professional research assistant deduplicating extracted claims.
Respond only with a JSON object.`

	sortingUserPrompt = `Group near-duplicate claims, fold duplicates into their canonical claim's
"duplicates" list, and order topics and subtopics by the requested sort
strategy. Return {"tree": {...}, "counts": {...}}.`

	summariesSystemPrompt = `You are a professional research assistant summarizing consultation topics.
Respond only with a JSON object.`

	summariesUserPrompt = `Write one short neutral summary per top-level topic in the claim tree.
Return {"summaries": [{"topicName", "summary"}]}.`

	cruxesSystemPrompt = `You are a professional research assistant identifying points of controversy.
Respond only with a JSON object.`

	cruxesUserPrompt = `Identify crux claims: statements that would split the participants into
roughly even agree/disagree camps. Attribute speakers to camps based on
their claims. Return {"cruxClaims": [{"cruxClaim", "agree", "disagree",
"topicName"}]}.`
)
