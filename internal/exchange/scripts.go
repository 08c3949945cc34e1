package exchange

import "github.com/signalsfoundry/switchboard-simulator/model"

// defaultScriptPool holds the stock conversations played once a call
// connects. The session shuffles the pool at start and cycles through it.
func defaultScriptPool() [][]model.Utterance {
	caller := func(text string) model.Utterance {
		return model.Utterance{Speaker: model.SpeakerCaller, Text: text}
	}
	callee := func(text string) model.Utterance {
		return model.Utterance{Speaker: model.SpeakerCallee, Text: text}
	}

	return [][]model.Utterance{
		{
			caller("Harold, the shipment never arrived."),
			callee("It left the depot on Tuesday, I swear it."),
			caller("Tuesday! The buyers are at my door."),
			callee("Tell them Thursday and not a day later."),
		},
		{
			caller("Doctor, the baby has a terrible cough."),
			callee("Steam and honey, and keep her warm."),
			caller("Bless you, doctor."),
		},
		{
			caller("Is the dance still on for Saturday?"),
			callee("Rain or shine, the band is booked."),
			caller("Then save me the first waltz."),
		},
		{
			caller("Mother, I passed the examination!"),
			callee("Oh, wonderful news! Your father will burst."),
			caller("Tell him I'll be home Sunday."),
			callee("I'll roast a chicken."),
		},
		{
			caller("The price of wheat is falling again."),
			callee("Hold what you have until spring."),
			caller("Easy for you to say from town."),
			callee("Trust me on this one, Albert."),
		},
		{
			caller("Did you hear about the Hendersons?"),
			callee("Heard it? I was there when it happened."),
			caller("You must tell me everything."),
			callee("Not on the line, dear. The operator listens."),
		},
	}
}
