package view

import "time"

// SlideInterval is how often the hero carousel advances on its own.
const SlideInterval = 5 * time.Second

const Brand = "Peak Pedals Escapes"

type Slide struct {
	Image       string
	MainHeading string
	SubHeading  string
	ButtonText  string
	ButtonLink  string
}

type Stat struct{ Number, Label string }

type Feature struct {
	Icon        string // emoji; the site ships no icon font
	Title       string
	Description string
}

type Testimonial struct {
	Name   string
	Date   string
	Rating int
	Text   string
	Image  string
}

// Stars is the five-star strip for the testimonial.
func (t Testimonial) Stars() []bool {
	out := make([]bool, 5)
	for i := range out {
		out[i] = i < t.Rating
	}
	return out
}

var HeroSlides = []Slide{
	{
		Image:       "/assets/images/cover_images/home1.JPG",
		MainHeading: "UNFORGETTABLE E-BIKE ESCAPES",
		SubHeading:  "Scenic Trails - Hidden Gems - Picnic-Style Experiences",
		ButtonText:  "Book a Escape",
		ButtonLink:  "/tours",
	},
	{
		Image:       "/assets/images/cover_images/home2.jpg",
		MainHeading: "DISCOVER FANTASTIC PLACES",
		SubHeading:  "Experience the Best of Hill Country",
		ButtonText:  "Read More",
		ButtonLink:  "/tours",
	},
	{
		Image:       "/assets/images/cover_images/home3.jpg",
		MainHeading: "ENJOY A LOVELY TOUR",
		SubHeading:  "Unwind on two wheels",
		ButtonText:  "Explore",
		ButtonLink:  "/tours",
	},
}

var HeroStats = []Stat{
	{"500+", "Happy Travelers"},
	{"15+", "Scenic Routes"},
	{"5★", "Average Rating"},
}

var Features = []Feature{
	{
		Icon:        "☕",
		Title:       "Unforgettable Picnic Tours",
		Description: "Savor a thoughtfully prepared picnic lunch on your e-bike journey. Pause at stunning hilltop spots for a meal with a view — a dreamy experience you've never had or even imagined.",
	},
	{
		Icon:        "🍃",
		Title:       "Eco-Friendly Exploration",
		Description: "Glide through Sri Lanka's lush hill country on our zero-emission electric bikes — a greener way to travel and connect with nature.",
	},
	{
		Icon:        "⛰",
		Title:       "Scenic Mountain Trails",
		Description: "Ride along handpicked mountain paths that lead you to panoramic viewpoints, hidden waterfalls, and serene tea landscapes.",
	},
	{
		Icon:        "📷",
		Title:       "Authentic Tea Plantation Visits",
		Description: "Step into the world of Ceylon tea with guided tours of live tea estates and factories. Learn the craft, taste the freshness, and witness local traditions.",
	},
}

var Testimonials = []Testimonial{
	{
		Name:   "ride2wheelsadv",
		Date:   "02 January 2025",
		Rating: 5,
		Text:   "I love that Peak Pedals is all about sustainable travel. The e-bike was a game changer, and the fresh local lunch was such a nice touch. Highly recommend for anyone visiting Ella!",
		Image:  "https://images.pexels.com/photos/774909/pexels-photo-774909.jpeg?auto=compress&cs=tinysrgb&w=100&h=100&fit=crop",
	},
	{
		Name:   "Samia12",
		Date:   "October 2024",
		Rating: 5,
		Text:   "From eco-friendly bikes to knowledgeable guides, Peak Pedals made our tour the highlight of our trip.",
		Image:  "https://images.pexels.com/photos/1043471/pexels-photo-1043471.jpeg?auto=compress&cs=tinysrgb&w=100&h=100&fit=crop",
	},
	{
		Name:   "Prabhath",
		Date:   "12 February 2025",
		Rating: 5,
		Text:   "Cycling up to Lipton's Seat with Peak Pedals was the highlight of my Sri Lanka trip. The views were unreal, the tea fields magical, and the e-bike made the climb smooth and fun.",
		Image:  "https://images.pexels.com/photos/1222271/pexels-photo-1222271.jpeg?auto=compress&cs=tinysrgb&w=100&h=100&fit=crop",
	},
}
