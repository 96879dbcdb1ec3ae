package canvas

import "fmt"

// reviewPrompt asks the model to critique an architecture diagram for a
// note-taking web application and to mark problems directly on the canvas.
func reviewPrompt(encodedElements string) string {
	return fmt.Sprintf(`You are reviewing a candidate's architecture diagram for a web-based note-taking application (in the vein of Google Keep or Notion).

The diagram is given below as a JSON array of canvas elements (rectangles, arrows, text and so on). Each element carries properties such as id, type, x, y, width, height, text, strokeColor and backgroundColor.

What a production note-taking app needs:
- user authentication and authorization
- data persistence for notes, attachments and metadata, with durability (users must never lose notes)
- sync across devices, real-time or close to it
- search over notes
- optionally rich text editing, attachments and sharing
- high availability

Analyze the diagram and flag problems by severity:

Critical (red, #ff0000): single point of failure for stored data, missing auth layer, no persistence strategy, a single application server with no redundancy.
Moderate (orange, #ff8800): no caching layer, no CDN for static assets, no search infrastructure, no queue for async work, no monitoring or logging.
Minor (yellow, #ffcc00): no read replicas, no rate limiting, no stated backup strategy.

Return JSON with three keys:
- "feedback": 2-3 sentences naming the main issues, concrete to a note-taking app (for example: "Your database is a single point of failure; if it goes down users lose access to every note. Add replication.")
- "elements_to_update": patches that recolor the problematic components with the severity colors above
- "elements_to_create": short text labels of 1-3 words such as "SPOF", "No Auth" or "Missing Cache", positioned near but not on top of the component they describe

Focus on the one to three most important issues. If the design is solid, say what is good and suggest a minor improvement. Respond with only valid JSON:

{
  "feedback": "your feedback here",
  "elements_to_update": [
    {"id": "<element-id>", "strokeColor": "#ff0000", "backgroundColor": "#ffe5e5"}
  ],
  "elements_to_create": [
    {"type": "text", "x": 0, "y": 0, "text": "<label>", "fontSize": 20, "strokeColor": "<severity-color>"}
  ]
}

Current elements:

%s
`, encodedElements)
}
