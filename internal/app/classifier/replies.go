package classifier

// DefaultReplies returns the canned replies per category.
// No reply appears under two categories.
func DefaultReplies() map[Category][]string {
	return map[Category][]string{
		CategoryGreeting: {
			"Hi! I'm Farum. How are you feeling today?",
			"Hello there! It's good to hear from you. What's on your mind?",
			"Hey! I'm here and listening. How has your day been?",
		},
		CategoryFarewell: {
			"Take care of yourself. I'll be here whenever you want to talk.",
			"Goodbye for now. Be gentle with yourself today.",
			"See you soon! Remember you can come back anytime.",
		},
		CategoryJoke: {
			"Why did the scarecrow win an award? Because he was outstanding in his field.",
			"I told my plants a joke. They didn't laugh, but they did grow on me.",
			"Why don't eggs tell jokes? They'd crack each other up.",
			"What do you call a bear with no teeth? A gummy bear.",
		},
		CategorySadness: {
			"I'm sorry you're feeling this way. Do you want to tell me what happened?",
			"That sounds really hard. It's okay to feel sad, and you don't have to carry it alone.",
			"Thank you for sharing that with me. What do you think would help a little right now?",
		},
		CategoryAnxiety: {
			"That sounds stressful. Let's take one slow breath together before we go on.",
			"It makes sense to feel worried. What part of this feels heaviest right now?",
			"When things feel overwhelming, it can help to name one small thing you can control. What could that be?",
		},
		CategoryHappiness: {
			"That's wonderful to hear! What made today feel good?",
			"I love that! Moments like this are worth holding on to.",
			"Yay! Tell me more, I'd love to celebrate it with you.",
		},
		CategoryGratitude: {
			"You're very welcome. I'm glad I could be here for you.",
			"Anytime! Thank you for trusting me with your thoughts.",
		},
		CategoryDefault: {
			"I hear you. Can you tell me a bit more about that?",
			"Interesting. How does that make you feel?",
			"I'm listening. What else is on your mind?",
			"Thanks for telling me. Where would you like to go from here?",
		},
	}
}
