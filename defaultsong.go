package stepsynth

// DefaultSong has four tracks with an empty pattern: a sine and a triangle
// voice, and two noise percussion voices.
var DefaultSong = Song{
	Tempo: DefaultTempo,
	Tracks: []Track{
		{Instrument: Instrument{Volume: 0.5, Wave: "sine", Duration: 0.4, FilterFrom: 500, Attack: 1, Frequency: 220, FreqAttack: 10, FreqDrop: 25}},
		{Instrument: Instrument{Volume: 0.41, Wave: "triangle", Duration: 0.108, FilterFrom: 500, Attack: 1, Frequency: 437.84, FreqAttack: 14.75, FreqDrop: 25.48}},
		{Instrument: Instrument{Volume: 0.42, Wave: Noise, Duration: 0.4, FilterFrom: 500, Attack: 5.09, Frequency: 47.69, FreqAttack: 7.24, FreqDrop: 11.53}},
		{Instrument: Instrument{Volume: 0.5, Wave: Noise, Duration: 0.1, FilterFrom: 500, Attack: 1, Frequency: 28.66, FreqAttack: 1.87, FreqDrop: 100}},
	},
}
