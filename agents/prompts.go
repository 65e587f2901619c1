package agents

import "time"

func now() time.Time {
	return time.Now().UTC()
}

// knowledgeSystemPrompt directs the model to self-report uncertainty so
// the confidence heuristic has something honest to score.
const knowledgeSystemPrompt = `You are a knowledgeable research assistant. Answer the user's question directly from your own knowledge.

If you are not certain of the answer, or your knowledge may be outdated or incomplete, say so explicitly rather than guessing. It is better to admit uncertainty than to fabricate details.`

// synthesisSystemPrompt frames the final answer around gathered sources.
const synthesisSystemPrompt = `You are a research assistant. Answer the user's question using the source material below. Synthesize across sources where they agree, note conflicts where they disagree, and do not invent facts the sources don't support.

Source material:

%s`

// generalKnowledgePrompt is the fallback when no sources fit or exist.
const generalKnowledgePrompt = `You are a research assistant. No reference material was found for this question, so answer from your general knowledge. Be clear about anything you are uncertain of.`

// hedgePhrases are case-insensitive substrings whose presence marks a
// knowledge response as not confident. Deliberately crude and explainable.
var hedgePhrases = []string{
	"i'm not sure",
	"i don't have",
	"i cannot confirm",
	"i'm unable to",
	"my knowledge",
	"my training data",
	"i don't know",
	"not enough information",
	"i cannot provide",
	"as of my last",
	"i do not have access",
	"i'm not certain",
	"beyond my knowledge",
}

// minConfidentLength is the minimum trimmed response length for a
// knowledge answer to count as confident. Very short answers are usually
// deflections.
const minConfidentLength = 100
