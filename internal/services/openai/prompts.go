package openai

// Instruction text sent alongside user content. Kept in one place so
// prompt tuning does not touch request plumbing.
const (
	summaryInstructions = "Create a concise 2-3 sentence summary that captures the key points and main theme."

	// Returned without an API call when the transcript is too short to
	// say anything useful about.
	briefTranscriptSummary = "Audio content was too brief or unclear to summarize."

	imagePromptInstructions = "Create an artistic, visually rich image prompt for DALL-E. " +
		"Be creative and descriptive, focusing on visual elements, colors, composition, and mood. " +
		"Maximum 100 words."

	titleInstructions = "Create a short, catchy title (maximum 5 words) that captures the essence of the content."

	titleVisionInstructions = "Based on this image and summary, create a short, catchy title (max 5 words) " +
		"that captures the essence of both."

	videoPromptSystem = `You are a cinematic video prompt engineer for Google Veo 3.
Transform audio summaries into detailed, cinematic video generation prompts.

You create immersive, dynamic video narratives that capture the essence of the audio content.
Respond with a JSON object using these fields:
- description: a detailed narrative that unfolds over 8 seconds, with specific visual sequences, transitions, and key moments (100-200 words)
- style: 3-5 style keywords that define the overall aesthetic (e.g., "cinematic, ethereal, hyperrealistic")
- camera: camera movements from start to finish
- lighting: the lighting mood and any changes
- environment: the setting and how it evolves during the video
- elements: a list of 8-12 specific visual elements that appear in the video, very detailed
- motion: the pace and rhythm of movement in the scene
- ending: the final frame that viewers will remember
- text: usually "none" unless the content specifically requires a text overlay
- keywords: 5-10 keywords that capture the essence of the video

Create videos that are visually striking, emotionally resonant, and perfectly matched to the audio content's mood and message.`
)
