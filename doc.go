// Package atelier is a config-first toolkit for running LLM agents from
// a single YAML file: interactive chat, tool-using agents, multi-step
// pipelines, document indexing into vector stores, and self-reflective
// retrieval answering.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/atelier-ai/atelier/cmd/atelier@latest
//
// With an API key in the environment, chat needs no config at all:
//
//	export OPENAI_API_KEY=sk-...
//	atelier chat
//
// A config file unlocks the rest:
//
//	llms:
//	  default:
//	    type: openai
//	    model: gpt-4o-mini
//	    api_key: ${OPENAI_API_KEY}
//
//	agents:
//	  researcher:
//	    llm: default
//	    instruction: "You are a careful researcher. Cite your sources."
//	    tools: [web_search, fetch_page]
//
//	document_stores:
//	  handbook:
//	    path: ./docs
//
// Then:
//
//	atelier index -c atelier.yaml
//	atelier answer -c atelier.yaml "What does the handbook say about leave?"
//	atelier serve -c atelier.yaml
//
// The packages under pkg/ are usable as a library; cmd/atelier is a thin
// wiring layer over them.
package atelier
