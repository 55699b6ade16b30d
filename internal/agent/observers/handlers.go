package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the prompt and model observers into one callbacks.Handler.
func NewAllCallbacks(personaID, modelName string) einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler(personaID, modelName)).
		Prompt(newPromptHandler(personaID)).
		Handler()
}
